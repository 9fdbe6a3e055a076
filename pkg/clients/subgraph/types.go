package subgraph

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"mymediarelease-backend/pkg/clients/evm"
	"mymediarelease-backend/pkg/locator"
)

// Release is a release record as the index returns it.
type Release struct {
	ID           string        `json:"id"`
	Symbol       string        `json:"symbol"`
	Stakeholders []Stakeholder `json:"stakeholders"`
	Payouts      []Payout      `json:"payouts"`
	Metadata     Metadata      `json:"metadata"`
	SaleData     SaleData      `json:"saleData"`
}

type Stakeholder struct {
	ID    string `json:"id"`
	Share BigInt `json:"share"`
}

// Address strips the release suffix the index appends to stakeholder ids.
func (s Stakeholder) Address() string {
	addr, _, _ := strings.Cut(s.ID, "-")
	return addr
}

type Payout struct {
	ID              string `json:"id"`
	Amount          BigInt `json:"amount"`
	CreatedAt       BigInt `json:"createdAt"`
	TransactionHash string `json:"transactionHash"`
}

type SaleData struct {
	TotalSold           BigInt `json:"totalSold"`
	MaxSupply           BigInt `json:"maxSupply"`
	TotalEarnings       BigInt `json:"totalEarnings"`
	TotalReleased       BigInt `json:"totalReleased"`
	RoyaltiesPercentage BigInt `json:"royaltiesPercentage"`
	SalePrice           BigInt `json:"salePrice"`
}

// BigInt decodes the index's BigInt scalars, which arrive as JSON strings.
type BigInt struct {
	big.Int
}

func NewBigInt(v int64) BigInt {
	var b BigInt
	b.SetInt64(v)
	return b
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		b.SetInt64(0)
		return nil
	}

	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid big integer %q", s)
	}
	return nil
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

type MetadataEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metadata keeps the raw key/value pairs of a release. Values are read by key
// only, an unknown key is reported as absent.
type Metadata struct {
	entries []MetadataEntry
}

func NewMetadata(entries ...MetadataEntry) Metadata {
	return Metadata{entries: entries}
}

// Lookup returns the first value stored under key.
func (m Metadata) Lookup(key string) (string, bool) {
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Value is Lookup without the presence flag.
func (m Metadata) Value(key string) string {
	v, _ := m.Lookup(key)
	return v
}

func (m Metadata) Len() int {
	return len(m.entries)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var entries []MetadataEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m.entries = entries
	return nil
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	if m.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.entries)
}

type ReleaseView struct {
	ID               string            `json:"id"`
	Symbol           string            `json:"symbol"`
	Name             string            `json:"name"`
	Artist           string            `json:"artist"`
	Description      string            `json:"description"`
	Image            string            `json:"image"`
	Audio            string            `json:"audio"`
	Licence          string            `json:"licence,omitempty"`
	TotalSold        string            `json:"total_sold"`
	MaxSupply        string            `json:"max_supply"`
	TotalEarnings    string            `json:"total_earnings"`
	TotalReleased    string            `json:"total_released"`
	SalePrice        string            `json:"sale_price"`
	RoyaltiesPercent string            `json:"royalties_percent"`
	Stakeholders     []StakeholderView `json:"stakeholders"`
	Payouts          []PayoutView      `json:"payouts"`
}

type StakeholderView struct {
	Address string `json:"address"`
	Share   string `json:"share"`
}

type PayoutView struct {
	Amount          string    `json:"amount"`
	CreatedAt       time.Time `json:"created_at"`
	TransactionHash string    `json:"transaction_hash"`
}

// View derives the typed release view. Locators are resolved into gateway
// URLs and chain amounts are formatted in display units.
func (r *Release) View(resolver *locator.Resolver) ReleaseView {
	sale := r.SaleData
	v := ReleaseView{
		ID:               r.ID,
		Symbol:           r.Symbol,
		Name:             r.Metadata.Value("name"),
		Artist:           r.Metadata.Value("artist"),
		Description:      r.Metadata.Value("description"),
		Image:            resolver.Resolve(r.Metadata.Value("image")),
		Audio:            resolver.Resolve(r.Metadata.Value("audio")),
		TotalSold:        sale.TotalSold.String(),
		MaxSupply:        sale.MaxSupply.String(),
		TotalEarnings:    evm.FormatUnits(&sale.TotalEarnings.Int, evm.EtherDecimals),
		TotalReleased:    evm.FormatUnits(&sale.TotalReleased.Int, evm.EtherDecimals),
		SalePrice:        evm.FormatUnits(&sale.SalePrice.Int, evm.EtherDecimals),
		RoyaltiesPercent: evm.FormatUnits(&sale.RoyaltiesPercentage.Int, evm.BasisPointDecimals),
		Stakeholders:     make([]StakeholderView, 0, len(r.Stakeholders)),
		Payouts:          make([]PayoutView, 0, len(r.Payouts)),
	}

	if licence, ok := r.Metadata.Lookup("licence"); ok {
		v.Licence = resolver.Resolve(licence)
	}

	for _, s := range r.Stakeholders {
		v.Stakeholders = append(v.Stakeholders, StakeholderView{
			Address: s.Address(),
			Share:   s.Share.String(),
		})
	}

	for _, p := range r.Payouts {
		v.Payouts = append(v.Payouts, PayoutView{
			Amount:          evm.FormatUnits(&p.Amount.Int, evm.EtherDecimals),
			CreatedAt:       time.Unix(p.CreatedAt.Int64(), 0).UTC(),
			TransactionHash: p.TransactionHash,
		})
	}

	return v
}
