package db

const (
	PublishStatusStoring   = "storing"
	PublishStatusSubmitted = "submitted"
	PublishStatusDeployed  = "deployed"
	PublishStatusFailed    = "failed"
	PublishStatusIndexed   = "indexed"
)

type Publish struct {
	ID              string `json:"id"`
	Creator         string `json:"creator"`
	Artist          string `json:"artist"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	MetadataURL     string `json:"metadata_url"`
	TxHash          string `json:"tx_hash"`
	ContractAddress string `json:"contract_address"`
	FailReason      string `json:"fail_reason"`
	NotificationID  string `json:"notification_id"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}
