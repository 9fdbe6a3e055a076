package evm

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	EtherDecimals      = 18
	BasisPointDecimals = 2
	maxDecimals        = 77
)

// ParseUnits converts a decimal display amount into an integer amount of the
// smallest unit, e.g. ParseUnits("1.5", 18) is 1.5e18. Empty input is zero.
// More fractional digits than decimals is an error, nothing is rounded.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > maxDecimals {
		return nil, fmt.Errorf("unsupported decimals %d", decimals)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return new(big.Int), nil
	}

	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("negative amount %q", value)
	}
	value = strings.TrimPrefix(value, "+")

	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, fmt.Errorf("invalid amount %q", value)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(big.Int), nil
	}

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}

	return n, nil
}

// FormatUnits is the inverse of ParseUnits, trailing zeros are trimmed.
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}

	sign := ""
	a := new(big.Int).Set(amount)
	if a.Sign() < 0 {
		sign = "-"
		a.Neg(a)
	}

	s := a.String()
	if decimals <= 0 {
		return sign + s
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	if frac == "" {
		return sign + whole
	}

	return sign + whole + "." + frac
}

func digitsOnly(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
