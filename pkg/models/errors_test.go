package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishFailedError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *PublishFailedError
		want string
	}{
		{"storage", &PublishFailedError{Reason: ReasonStorage}, "Error uploading to content storage, please try again."},
		{"invalid metadata", &PublishFailedError{Reason: ReasonInvalidMetadata}, "Stored metadata is incomplete, please try again."},
		{"rejected with revert", &PublishFailedError{Reason: ReasonTransactionRejected, Revert: "shares mismatch"}, "Transaction Error - shares mismatch"},
		{"rejected generic", &PublishFailedError{Reason: ReasonTransactionRejected}, "Transaction was rejected."},
		{"reverted generic", &PublishFailedError{Reason: ReasonTransactionReverted}, "Transaction reverted."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Message())
		})
	}
}

func TestUserMessage_Unwraps(t *testing.T) {
	inner := &PublishFailedError{Reason: ReasonTransactionReverted, Revert: "sold out", Err: errors.New("status 0")}
	wrapped := fmt.Errorf("publish: %w", inner)

	assert.Equal(t, "Transaction Error - sold out", UserMessage(wrapped))
	assert.Equal(t, "Invalid release - invalid input: image: missing", UserMessage(NewInvalidInput("image", "missing")))
	assert.Equal(t, "Error uploading to content storage, please try again.", UserMessage(&StorageUnavailableError{Err: errors.New("eof")}))
	assert.Equal(t, "Something went wrong, please try again.", UserMessage(errors.New("boom")))

	var publishErr *PublishFailedError
	assert.True(t, errors.As(wrapped, &publishErr))
	assert.Equal(t, "status 0", errors.Unwrap(publishErr).Error())
}
