package pbx

import "time"

// PBXProvider is one telephony provider integration owned by a company.
type PBXProvider struct {
	ID        int64  `json:"id" db:"id"`
	CompanyID int64  `json:"company_id" db:"company_id"`
	Name      string `json:"name" db:"name"`

	Status ProviderStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ProviderStatus string

const (
	ProviderStatusActive   ProviderStatus = "active"
	ProviderStatusDisabled ProviderStatus = "disabled"
)

// PBXAccount is one credentialed account on a provider. Ingestion work is
// fanned out per active account.
type PBXAccount struct {
	ID            int64  `json:"id" db:"id"`
	CompanyID     int64  `json:"company_id" db:"company_id"`
	PBXProviderID int64  `json:"pbx_provider_id" db:"pbx_provider_id"`
	Name          string `json:"name" db:"name"`

	Status AccountStatus `json:"status" db:"status"`

	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" db:"last_synced_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

// RecordingNotice is one fetched PBX recording notification, already
// translated into provider-agnostic shape by a Client implementation.
type RecordingNotice struct {
	CallID          int64
	IdempotencyKey  string
	RecordingURL    string
	Codec           string
	DurationSeconds int
	StorageProvider string
	StoragePath     string
	FileSizeBytes   int64
}
