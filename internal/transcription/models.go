package transcription

import "time"

// CallTranscription is one transcript per (call, provider, language).
//
// Identity invariant: unique on that triple. A callback replay for the same
// triple updates the row in place, never duplicates it.
type CallTranscription struct {
	ID        int64 `json:"id" db:"id"`
	CompanyID int64 `json:"company_id" db:"company_id"`
	CallID    int64 `json:"call_id" db:"call_id"`

	Provider string `json:"provider" db:"provider"`
	Language string `json:"language" db:"language"`

	TranscriptText  string  `json:"transcript_text" db:"transcript_text"`
	DurationSeconds float64 `json:"duration_seconds" db:"duration_seconds"`
	ConfidenceScore float64 `json:"confidence_score" db:"confidence_score"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CallSpeakerSegment is a diarized span of a call.
//
// Identity invariant: no two segments for the same call share an identical
// (start_second, end_second) pair. Replay replaces the matching range rather
// than appending; segments are not an append-only log.
type CallSpeakerSegment struct {
	ID     int64 `json:"id" db:"id"`
	CallID int64 `json:"call_id" db:"call_id"`

	SpeakerLabel string  `json:"speaker_label" db:"speaker_label"`
	StartSecond  float64 `json:"start_second" db:"start_second"`
	EndSecond    float64 `json:"end_second" db:"end_second"`
	Text         string  `json:"text" db:"text"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TranscriptionUsage is the billing/usage record per
// (call_recording, provider, language). Replay updates in place.
type TranscriptionUsage struct {
	ID              int64 `json:"id" db:"id"`
	CompanyID       int64 `json:"company_id" db:"company_id"`
	CallRecordingID int64 `json:"call_recording_id" db:"call_recording_id"`

	Provider string `json:"provider" db:"provider"`
	Language string `json:"language" db:"language"`

	DurationSeconds float64 `json:"duration_seconds" db:"duration_seconds"`
	CostEstimate    float64 `json:"cost_estimate" db:"cost_estimate"`
	Currency        string  `json:"currency" db:"currency"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
