package transcription

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	defaultLanguage = "en"
	defaultCurrency = "USD"
)

var ErrInvalidPayload = errors.New("invalid callback payload")

// rawPayload mirrors the provider wire format, including the field aliases
// providers have historically used (transcript vs transcript_text, provider
// vs provider_name, speaker vs speaker_label). Aliases are collapsed in
// Normalize; new code should only read the canonical fields on Payload.
type rawPayload struct {
	CallID          int64  `json:"call_id"`
	CallRecordingID int64  `json:"call_recording_id"`
	RecordingID     string `json:"recording_id"`

	ProviderName string `json:"provider_name"`
	Provider     string `json:"provider"`
	Language     string `json:"language"`

	TranscriptText string `json:"transcript_text"`
	Transcript     string `json:"transcript"`

	DurationSeconds float64 `json:"duration_seconds"`
	ConfidenceScore float64 `json:"confidence_score"`
	CostEstimate    float64 `json:"cost_estimate"`
	Currency        string  `json:"currency"`
	CompanyID       int64   `json:"company_id"`

	SpeakerSegments []rawSegment `json:"speaker_segments"`
}

type rawSegment struct {
	// Start/end are pointers so "absent" is distinguishable from zero;
	// a segment missing either bound is skipped, not zero-filled.
	StartSecond *float64 `json:"start_second"`
	EndSecond   *float64 `json:"end_second"`

	SpeakerLabel string `json:"speaker_label"`
	Speaker      string `json:"speaker"`
	Text         string `json:"text"`
}

// Payload is the normalized, validated callback body.
type Payload struct {
	CallID          int64
	CallRecordingID int64

	// RecordingKey is the provider-side idempotency key ("recording_id" on
	// the wire) used to disambiguate multiple recordings per call.
	RecordingKey string

	Provider string
	Language string

	TranscriptText  string
	DurationSeconds float64
	ConfidenceScore float64
	CostEstimate    float64
	Currency        string
	CompanyID       int64

	Segments []Segment
}

// Segment is one diarized span from the payload. Only segments with both
// bounds present survive normalization.
type Segment struct {
	StartSecond  float64
	EndSecond    float64
	SpeakerLabel string
	Text         string
}

// ParsePayload decodes, normalizes and validates a callback body.
// It must only be called after signature verification has succeeded.
func ParsePayload(body []byte) (Payload, error) {
	var raw rawPayload
	if err := json.Unmarshal(body, &raw); err != nil {
		return Payload{}, fmt.Errorf("%w: malformed json", ErrInvalidPayload)
	}

	p := Payload{
		CallID:          raw.CallID,
		CallRecordingID: raw.CallRecordingID,
		RecordingKey:    strings.TrimSpace(raw.RecordingID),
		Provider:        firstNonEmpty(raw.ProviderName, raw.Provider),
		Language:        strings.TrimSpace(raw.Language),
		TranscriptText:  firstNonEmpty(raw.TranscriptText, raw.Transcript),
		DurationSeconds: raw.DurationSeconds,
		ConfidenceScore: raw.ConfidenceScore,
		CostEstimate:    raw.CostEstimate,
		Currency:        strings.TrimSpace(raw.Currency),
		CompanyID:       raw.CompanyID,
	}
	if p.Language == "" {
		p.Language = defaultLanguage
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if p.Provider == "" {
		p.Provider = "unknown"
	}

	for _, s := range raw.SpeakerSegments {
		if s.StartSecond == nil || s.EndSecond == nil {
			continue
		}
		p.Segments = append(p.Segments, Segment{
			StartSecond:  *s.StartSecond,
			EndSecond:    *s.EndSecond,
			SpeakerLabel: firstNonEmpty(s.SpeakerLabel, s.Speaker),
			Text:         s.Text,
		})
	}

	if err := p.validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func (p Payload) validate() error {
	if p.CallID <= 0 && p.CallRecordingID <= 0 {
		return fmt.Errorf("%w: call_id or call_recording_id required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.TranscriptText) == "" {
		return fmt.Errorf("%w: transcript text required", ErrInvalidPayload)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
