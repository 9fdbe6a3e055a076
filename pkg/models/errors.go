package models

import (
	"errors"
	"fmt"
)

const (
	BadRequestErrorCode     = 400
	UnauthorizedErrorCode   = 401
	NotFoundErrorCode       = 404
	ConflictErrorCode       = 409
	InternalServerErrorCode = 500
	BadGatewayErrorCode     = 502
	ServiceUnavailableCode  = 503
)

type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Message)
}

func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// InvalidInputError reports an incomplete or malformed release request.
// It is never retried.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func NewInvalidInput(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

// StorageUnavailableError wraps a content store transport failure.
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return "storage unavailable: " + e.Err.Error()
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

type PublishFailedReason string

const (
	ReasonStorage             PublishFailedReason = "storage"
	ReasonInvalidMetadata     PublishFailedReason = "invalid-metadata"
	ReasonTransactionRejected PublishFailedReason = "transaction-rejected"
	ReasonTransactionReverted PublishFailedReason = "transaction-reverted"
)

type PublishFailedError struct {
	Reason PublishFailedReason
	// Revert holds the contract revert reason when one could be decoded.
	Revert string
	Err    error
}

func (e *PublishFailedError) Error() string {
	if e.Err == nil {
		return "publish failed: " + string(e.Reason)
	}
	return fmt.Sprintf("publish failed: %s: %s", e.Reason, e.Err.Error())
}

func (e *PublishFailedError) Unwrap() error {
	return e.Err
}

// Message is the human readable text shown to the user for this failure.
func (e *PublishFailedError) Message() string {
	switch e.Reason {
	case ReasonStorage:
		return "Error uploading to content storage, please try again."
	case ReasonInvalidMetadata:
		return "Stored metadata is incomplete, please try again."
	case ReasonTransactionRejected:
		if e.Revert != "" {
			return "Transaction Error - " + e.Revert
		}
		return "Transaction was rejected."
	case ReasonTransactionReverted:
		if e.Revert != "" {
			return "Transaction Error - " + e.Revert
		}
		return "Transaction reverted."
	}

	return "Something went wrong, please try again."
}

// UserMessage renders any error returned by the release workflow for display.
func UserMessage(err error) string {
	var publishErr *PublishFailedError
	if errors.As(err, &publishErr) {
		return publishErr.Message()
	}

	var inputErr *InvalidInputError
	if errors.As(err, &inputErr) {
		return "Invalid release - " + inputErr.Error()
	}

	var storageErr *StorageUnavailableError
	if errors.As(err, &storageErr) {
		return "Error uploading to content storage, please try again."
	}

	return "Something went wrong, please try again."
}
