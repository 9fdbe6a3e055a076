package subgraph

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mymediarelease-backend/pkg/locator"
)

const releaseJSON = `{
	"id": "0xrelease",
	"symbol": "TRK",
	"stakeholders": [
		{"id": "0x1-0xrelease", "share": "60"},
		{"id": "0x2-0xrelease", "share": "40"}
	],
	"payouts": [
		{"id": "p1", "amount": "250000000000000000", "createdAt": "1650000000", "transactionHash": "0xtx"}
	],
	"metadata": [
		{"key": "name", "value": "Track"},
		{"key": "artist", "value": "A"},
		{"key": "description", "value": "desc"},
		{"key": "image", "value": "ipfs://img/cover.png"},
		{"key": "audio", "value": "ipfs://aud/track.mp3"}
	],
	"saleData": {
		"totalSold": "3",
		"maxSupply": "10",
		"totalEarnings": "4500000000000000000",
		"totalReleased": "0",
		"royaltiesPercentage": "500",
		"salePrice": "1500000000000000000"
	}
}`

func TestMetadataLookup(t *testing.T) {
	m := NewMetadata(
		MetadataEntry{Key: "name", Value: "first"},
		MetadataEntry{Key: "name", Value: "second"},
		MetadataEntry{Key: "empty", Value: ""},
	)

	v, ok := m.Lookup("name")
	assert.True(t, ok)
	assert.Equal(t, "first", v)

	v, ok = m.Lookup("empty")
	assert.True(t, ok)
	assert.Empty(t, v)

	v, ok = m.Lookup("nonexistent")
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Empty(t, m.Value("nonexistent"))
}

func TestMetadataUnknownKeyIsAbsent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("keys never stored are absent", prop.ForAll(
		func(keys []string, probe string) bool {
			entries := make([]MetadataEntry, 0, len(keys))
			for _, k := range keys {
				entries = append(entries, MetadataEntry{Key: "k" + k, Value: k})
			}
			_, ok := NewMetadata(entries...).Lookup("x" + probe)
			return !ok
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestReleaseDecodeAndView(t *testing.T) {
	var r Release
	require.NoError(t, json.Unmarshal([]byte(releaseJSON), &r))

	assert.Equal(t, 5, r.Metadata.Len())
	assert.Equal(t, "0x1", r.Stakeholders[0].Address())
	assert.Equal(t, int64(60), r.Stakeholders[0].Share.Int64())

	view := r.View(locator.NewResolver(locator.Rule{Scheme: locator.IPFSScheme, Gateway: locator.DefaultIPFSGateway}))
	assert.Equal(t, "Track", view.Name)
	assert.Equal(t, "A", view.Artist)
	assert.Equal(t, "https://ipfs.infura.io/ipfs/img/cover.png", view.Image)
	assert.Equal(t, "https://ipfs.infura.io/ipfs/aud/track.mp3", view.Audio)
	assert.Empty(t, view.Licence)
	assert.Equal(t, "1.5", view.SalePrice)
	assert.Equal(t, "4.5", view.TotalEarnings)
	assert.Equal(t, "5", view.RoyaltiesPercent)
	assert.Equal(t, "3", view.TotalSold)
	assert.Equal(t, "10", view.MaxSupply)
	require.Len(t, view.Stakeholders, 2)
	assert.Equal(t, StakeholderView{Address: "0x2", Share: "40"}, view.Stakeholders[1])
	require.Len(t, view.Payouts, 1)
	assert.Equal(t, "0.25", view.Payouts[0].Amount)
	assert.Equal(t, time.Unix(1650000000, 0).UTC(), view.Payouts[0].CreatedAt)
}

func TestBigIntDecode(t *testing.T) {
	var b BigInt
	require.NoError(t, json.Unmarshal([]byte(`"123456789012345678901234567890"`), &b))
	assert.Equal(t, "123456789012345678901234567890", b.String())

	require.NoError(t, json.Unmarshal([]byte(`42`), &b))
	assert.Equal(t, int64(42), b.Int64())

	require.NoError(t, json.Unmarshal([]byte(`null`), &b))
	assert.Equal(t, int64(0), b.Int64())

	assert.Error(t, json.Unmarshal([]byte(`"1.5"`), &b))

	raw, err := json.Marshal(NewBigInt(7))
	require.NoError(t, err)
	assert.JSONEq(t, `"7"`, string(raw))
}
