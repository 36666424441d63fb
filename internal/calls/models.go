package calls

import "time"

// Call represents one telephone call owned by a company.
//
// Company-scoping invariant: CompanyID is required on every row; any
// cross-company reference from an inbound request is rejected at the
// boundary before state is mutated.
//
// Rows are created by the call-record sync process. This pipeline treats
// them as read-only anchors for recordings, transcriptions and segments.
type Call struct {
	ID           int64  `json:"id" db:"id"`
	CompanyID    int64  `json:"company_id" db:"company_id"`
	PBXAccountID int64  `json:"pbx_account_id" db:"pbx_account_id"`

	// CallUID is the provider-side unique identifier for the call (CDR id).
	CallUID string `json:"call_uid" db:"call_uid"`

	Direction  Direction `json:"direction" db:"direction"`
	FromNumber string    `json:"from_number" db:"from_number"`
	ToNumber   string    `json:"to_number" db:"to_number"`

	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationSeconds int        `json:"duration_seconds" db:"duration_seconds"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusMissed    Status = "missed"
	StatusFailed    Status = "failed"
)
