package evm

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		value    string
		decimals int
		want     string
	}{
		{"1.5", EtherDecimals, "1500000000000000000"},
		{"0.000000000000000001", EtherDecimals, "1"},
		{"", EtherDecimals, "0"},
		{"0", EtherDecimals, "0"},
		{"5", BasisPointDecimals, "500"},
		{"12.5", BasisPointDecimals, "1250"},
		{"1.50", BasisPointDecimals, "150"},
		{".5", BasisPointDecimals, "50"},
		{" 2 ", 0, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseUnits(tt.value, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseUnitsRejects(t *testing.T) {
	for _, v := range []string{"-1", "1e5", "abc", ".", "1.2.3", "0.001"} {
		_, err := ParseUnits(v, BasisPointDecimals)
		assert.Error(t, err, v)
	}

	_, err := ParseUnits("1", -1)
	assert.Error(t, err)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1_500_000_000_000_000_000), EtherDecimals))
	assert.Equal(t, "5", FormatUnits(big.NewInt(500), BasisPointDecimals))
	assert.Equal(t, "0.05", FormatUnits(big.NewInt(5), BasisPointDecimals))
	assert.Equal(t, "0", FormatUnits(nil, EtherDecimals))
	assert.Equal(t, "-1.25", FormatUnits(big.NewInt(-125), BasisPointDecimals))
}

func TestUnitsRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("format then parse is identity", prop.ForAll(
		func(n uint64, decimals int) bool {
			amount := new(big.Int).SetUint64(n)
			parsed, err := ParseUnits(FormatUnits(amount, decimals), decimals)
			return err == nil && parsed.Cmp(amount) == 0
		},
		gen.UInt64(),
		gen.IntRange(0, EtherDecimals),
	))

	properties.TestingRun(t)
}
