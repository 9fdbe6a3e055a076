package evm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

var revertPatterns = []*regexp.Regexp{
	regexp.MustCompile(`reverted with reason string '([^']*)'`),
	regexp.MustCompile(`execution reverted: (.+)$`),
	regexp.MustCompile(`revert(?:ed)?: (.+)$`),
}

// RevertedError reports a mined transaction whose receipt status is failed.
type RevertedError struct {
	Receipt *types.Receipt
	Reason  string
}

func (e *RevertedError) Error() string {
	if e.Reason != "" {
		return "transaction reverted: " + e.Reason
	}
	return "transaction reverted"
}

// RevertReason extracts the human readable revert string carried by err,
// either as ABI encoded Error(string) data or inside the message text.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}

	var reverted *RevertedError
	if errors.As(err, &reverted) && reverted.Reason != "" {
		return reverted.Reason
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, dErr := hexutil.Decode(s); dErr == nil {
				if reason, uErr := abi.UnpackRevert(data); uErr == nil {
					return reason
				}
			}
		}
	}

	msg := err.Error()
	for _, re := range revertPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	return ""
}
