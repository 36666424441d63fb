package recording

import "time"

// CallRecording is one audio artifact for a call.
//
// Identity invariant: (call_id, pbx_provider_id, idempotency_key) is unique.
// Reprocessing the same provider notification must resolve to the same row,
// never create a duplicate.
//
// Status only changes through guarded lifecycle transitions (see lifecycle.go).
// transcribed and failed are terminal.
type CallRecording struct {
	ID            int64 `json:"id" db:"id"`
	CompanyID     int64 `json:"company_id" db:"company_id"`
	PBXProviderID int64 `json:"pbx_provider_id" db:"pbx_provider_id"`
	CallID        int64 `json:"call_id" db:"call_id"`

	RecordingURL    string `json:"recording_url" db:"recording_url"`
	Codec           string `json:"codec,omitempty" db:"codec"`
	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`

	StorageProvider string `json:"storage_provider,omitempty" db:"storage_provider"`
	StoragePath     string `json:"storage_path,omitempty" db:"storage_path"`
	FileSizeBytes   int64  `json:"file_size_bytes" db:"file_size_bytes"`

	// IdempotencyKey is the PBX-supplied token used to collapse duplicate
	// notifications for the same artifact. May be empty for providers that
	// do not send one.
	IdempotencyKey string `json:"idempotency_key,omitempty" db:"idempotency_key"`

	Status Status `json:"status" db:"status"`

	// ErrorMessage holds the failure reason while Status is failed.
	// Cleared by any successful transition to a non-failed state.
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
