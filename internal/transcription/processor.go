package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recording-pipeline/internal/recording"
	"recording-pipeline/pkg/logger"
)

// Store abstracts persistence for the callback merge.
//
// Merge is atomic: every write it carries commits together or not at all.
// The lifecycle decision is made by the processor before Merge is invoked,
// which is how a rejected transition avoids rolling back transcript writes.
type Store interface {
	FindRecordingByID(ctx context.Context, id int64) (recording.CallRecording, bool, error)
	FindRecordingByCallAndKey(ctx context.Context, callID int64, key string) (recording.CallRecording, bool, error)

	// FindMostRecentRecordingForCall is the explicit best-effort fallback for
	// callbacks that only carry a call id. A call can have several recordings;
	// precedence is explicit id, then (call, key), then this.
	FindMostRecentRecordingForCall(ctx context.Context, callID int64) (recording.CallRecording, bool, error)

	Merge(ctx context.Context, m Merge) (MergeOutcome, error)
}

// Merge is the unit of work Merge implementations apply in one transaction.
type Merge struct {
	Transcription CallTranscription

	// Segments replace any existing segment with the same
	// (call_id, start_second, end_second) pair.
	Segments []CallSpeakerSegment

	// Usage is upserted on (call_recording_id, provider, language) when the
	// target recording was resolved; nil otherwise.
	Usage *TranscriptionUsage

	// StatusUpdate carries an already-validated lifecycle move for the
	// resolved recording; nil when no recording was resolved or the
	// transition was rejected.
	StatusUpdate *StatusUpdate

	Now time.Time
}

type StatusUpdate struct {
	RecordingID int64
	Status      recording.Status
}

type MergeOutcome struct {
	TranscriptionID int64
}

// ResultStatus distinguishes a fully applied callback from a partial one.
type ResultStatus string

const (
	// ResultOK: transcript, segments and (when applicable) usage and the
	// lifecycle move all committed.
	ResultOK ResultStatus = "ok"

	// ResultPartial: transcript/segment writes committed, but the recording
	// could not be resolved or refused the transition to transcribed. The
	// transcript content is valid independent of the recording's status, so
	// it is kept rather than discarded.
	ResultPartial ResultStatus = "partial"
)

// Result summarizes one processed callback.
type Result struct {
	Status          ResultStatus `json:"status"`
	CallID          int64        `json:"call_id"`
	RecordingID     int64        `json:"recording_id,omitempty"`
	TranscriptionID int64        `json:"transcription_id,omitempty"`
	SegmentCount    int          `json:"segment_count"`
	Note            string       `json:"note,omitempty"`
}

// Processor verifies, resolves and idempotently merges transcription
// callbacks.
type Processor struct {
	secret string
	store  Store
	clock  func() time.Time
}

func NewProcessor(secret string, store Store) *Processor {
	return &Processor{secret: secret, store: store, clock: time.Now}
}

// Handle processes one raw callback delivery.
//
// The raw body is never parsed before the signature verifies. Error classes:
// ErrMissingSecret (server misconfiguration), ErrMissingSignature /
// ErrBadSignature (unauthenticated), ErrInvalidPayload (client error);
// anything else is an internal failure the provider is expected to retry.
func (p *Processor) Handle(ctx context.Context, body []byte, signature string) (Result, error) {
	if err := VerifySignature(p.secret, body, signature); err != nil {
		return Result{}, err
	}

	payload, err := ParsePayload(body)
	if err != nil {
		return Result{}, err
	}

	rec, err := p.resolveRecording(ctx, &payload)
	if err != nil {
		return Result{}, err
	}

	now := p.clock().UTC()
	companyID := payload.CompanyID
	if rec != nil {
		companyID = rec.CompanyID
	}

	m := Merge{
		Transcription: CallTranscription{
			CompanyID:       companyID,
			CallID:          payload.CallID,
			Provider:        payload.Provider,
			Language:        payload.Language,
			TranscriptText:  payload.TranscriptText,
			DurationSeconds: payload.DurationSeconds,
			ConfidenceScore: payload.ConfidenceScore,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		Now: now,
	}
	for _, s := range payload.Segments {
		m.Segments = append(m.Segments, CallSpeakerSegment{
			CallID:       payload.CallID,
			SpeakerLabel: s.SpeakerLabel,
			StartSecond:  s.StartSecond,
			EndSecond:    s.EndSecond,
			Text:         s.Text,
			CreatedAt:    now,
		})
	}

	res := Result{
		Status:       ResultOK,
		CallID:       payload.CallID,
		SegmentCount: len(m.Segments),
	}

	if rec == nil {
		// Known split-commit behavior: the transcript still lands even when
		// no recording resolves; usage and the status move are skipped.
		res.Status = ResultPartial
		res.Note = "recording not resolved; usage and status skipped"
	} else {
		res.RecordingID = rec.ID
		m.Usage = &TranscriptionUsage{
			CompanyID:       rec.CompanyID,
			CallRecordingID: rec.ID,
			Provider:        payload.Provider,
			Language:        payload.Language,
			DurationSeconds: payload.DurationSeconds,
			CostEstimate:    payload.CostEstimate,
			Currency:        payload.Currency,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		switch {
		case rec.Status == recording.StatusTranscribed:
			// Same-state redelivery is a no-op, not an error.
		default:
			moved := *rec
			if terr := recording.Transition(&moved, recording.StatusTranscribed); terr != nil {
				res.Status = ResultPartial
				res.Note = terr.Error()
				logger.From(ctx).Warn("callback transition rejected",
					"recording_id", rec.ID,
					"call_id", payload.CallID,
					"from", string(rec.Status),
				)
			} else {
				m.StatusUpdate = &StatusUpdate{RecordingID: rec.ID, Status: recording.StatusTranscribed}
			}
		}
	}

	out, err := p.store.Merge(ctx, m)
	if err != nil {
		return Result{}, fmt.Errorf("callback merge: %w", err)
	}
	res.TranscriptionID = out.TranscriptionID
	return res, nil
}

// resolveRecording applies the documented precedence: explicit
// call_recording_id, then (call_id, recording key), then most recent
// recording for the call. Returns nil when nothing resolves; the merge still
// proceeds without usage/status in that case.
func (p *Processor) resolveRecording(ctx context.Context, payload *Payload) (*recording.CallRecording, error) {
	if payload.CallRecordingID > 0 {
		rec, ok, err := p.store.FindRecordingByID(ctx, payload.CallRecordingID)
		if err != nil {
			return nil, fmt.Errorf("resolve recording by id: %w", err)
		}
		if !ok {
			if payload.CallID <= 0 {
				return nil, fmt.Errorf("%w: unknown call_recording_id", ErrInvalidPayload)
			}
			return nil, nil
		}
		if payload.CallID <= 0 {
			payload.CallID = rec.CallID
		}
		return &rec, nil
	}

	if payload.RecordingKey != "" {
		rec, ok, err := p.store.FindRecordingByCallAndKey(ctx, payload.CallID, payload.RecordingKey)
		if err != nil {
			return nil, fmt.Errorf("resolve recording by key: %w", err)
		}
		if ok {
			return &rec, nil
		}
	}

	rec, ok, err := p.store.FindMostRecentRecordingForCall(ctx, payload.CallID)
	if err != nil {
		return nil, fmt.Errorf("resolve most recent recording: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// IsClientError reports whether err should map to a 4xx response.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPayload)
}

// IsAuthError reports whether err should map to a 401 response.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingSignature) || errors.Is(err, ErrBadSignature)
}
