package v1

import (
	"mymediarelease-backend/pkg/clients/subgraph"
	"mymediarelease-backend/pkg/metadata"
)

type StakeholderShare struct {
	Address string `json:"address"`
	Share   uint64 `json:"share"`
}

type PublishResponse struct {
	ID             string           `json:"id"`
	Address        string           `json:"address"`
	TxHash         string           `json:"tx_hash"`
	MetadataURL    string           `json:"metadata_url"`
	Metadata       *metadata.Stored `json:"metadata"`
	NotificationID string           `json:"notification_id"`
}

type ReleaseFundsRequest struct {
	Payee string `json:"payee"`
}

type Transaction struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

type Publish struct {
	ID              string `json:"id"`
	Creator         string `json:"creator"`
	Artist          string `json:"artist"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	MetadataURL     string `json:"metadata_url,omitempty"`
	TxHash          string `json:"tx_hash,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	FailReason      string `json:"fail_reason,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

// WatchEvent is one tick of a release watch stream.
type WatchEvent struct {
	Indexed bool                  `json:"indexed"`
	Release *subgraph.ReleaseView `json:"release,omitempty"`
	Error   string                `json:"error,omitempty"`
}
