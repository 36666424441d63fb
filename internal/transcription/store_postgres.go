package transcription

import (
	"context"
	"database/sql"
	"errors"

	"recording-pipeline/internal/recording"
	"recording-pipeline/pkg/utils"
)

// PostgresStore persists callback merges.
//
// NOTE: assumes the following tables exist:
// - call_transcriptions with UNIQUE (call_id, provider, language)
// - call_speaker_segments with UNIQUE (call_id, start_second, end_second)
// - transcription_usages with UNIQUE (call_recording_id, provider, language)
// - call_recordings (see recording.PostgresRepo)
type PostgresStore struct {
	DB *sql.DB

	recordings *recording.PostgresRepo
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db, recordings: &recording.PostgresRepo{DB: db}}
}

func (s *PostgresStore) FindRecordingByID(ctx context.Context, id int64) (recording.CallRecording, bool, error) {
	return s.recordings.FindByID(ctx, id)
}

func (s *PostgresStore) FindRecordingByCallAndKey(ctx context.Context, callID int64, key string) (recording.CallRecording, bool, error) {
	// The callback carries no provider id, so the match is on call and key
	// alone, unlike the ingestion-side lookup.
	const q = `
SELECT id, company_id, pbx_provider_id, call_id, recording_url, codec, duration_seconds,
       storage_provider, storage_path, file_size_bytes, idempotency_key, status,
       error_message, created_at, updated_at
FROM call_recordings
WHERE call_id = $1 AND idempotency_key = $2
ORDER BY created_at DESC, id DESC
LIMIT 1
`
	var rec recording.CallRecording
	err := s.DB.QueryRowContext(ctx, q, callID, key).Scan(
		&rec.ID,
		&rec.CompanyID,
		&rec.PBXProviderID,
		&rec.CallID,
		&rec.RecordingURL,
		&rec.Codec,
		&rec.DurationSeconds,
		&rec.StorageProvider,
		&rec.StoragePath,
		&rec.FileSizeBytes,
		&rec.IdempotencyKey,
		&rec.Status,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return recording.CallRecording{}, false, nil
		}
		return recording.CallRecording{}, false, err
	}
	return rec, true, nil
}

func (s *PostgresStore) FindMostRecentRecordingForCall(ctx context.Context, callID int64) (recording.CallRecording, bool, error) {
	return s.recordings.FindMostRecentByCall(ctx, callID)
}

// Merge applies every write in one transaction. Two concurrent callbacks for
// the same (call, provider, language) triple serialize on the upserted rows;
// merges for different triples do not block each other.
func (s *PostgresStore) Merge(ctx context.Context, m Merge) (MergeOutcome, error) {
	var out MergeOutcome

	err := utils.WithTx(ctx, s.DB, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := upsertTranscription(ctx, tx, &m, &out); err != nil {
			return err
		}
		for _, seg := range m.Segments {
			if err := replaceSegment(ctx, tx, seg); err != nil {
				return err
			}
		}
		if m.Usage != nil {
			if err := upsertUsage(ctx, tx, m); err != nil {
				return err
			}
		}
		if m.StatusUpdate != nil {
			if err := updateRecordingStatus(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return MergeOutcome{}, err
	}
	return out, nil
}

func upsertTranscription(ctx context.Context, tx *sql.Tx, m *Merge, out *MergeOutcome) error {
	const q = `
INSERT INTO call_transcriptions (
  company_id, call_id, provider, language, transcript_text, duration_seconds,
  confidence_score, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$8
)
ON CONFLICT (call_id, provider, language)
DO UPDATE SET transcript_text = EXCLUDED.transcript_text,
              duration_seconds = EXCLUDED.duration_seconds,
              confidence_score = EXCLUDED.confidence_score,
              updated_at = EXCLUDED.updated_at
RETURNING id
`
	t := m.Transcription
	return tx.QueryRowContext(ctx, q,
		t.CompanyID,
		t.CallID,
		t.Provider,
		t.Language,
		t.TranscriptText,
		t.DurationSeconds,
		t.ConfidenceScore,
		m.Now,
	).Scan(&out.TranscriptionID)
}

// replaceSegment implements the replace-matching-range policy: delete any
// segment for the call with an identical (start, end) pair, then insert.
// Repeated delivery of the same segment list leaves the row count unchanged.
func replaceSegment(ctx context.Context, tx *sql.Tx, seg CallSpeakerSegment) error {
	const del = `
DELETE FROM call_speaker_segments
WHERE call_id = $1 AND start_second = $2 AND end_second = $3
`
	if _, err := tx.ExecContext(ctx, del, seg.CallID, seg.StartSecond, seg.EndSecond); err != nil {
		return err
	}
	const ins = `
INSERT INTO call_speaker_segments (call_id, speaker_label, start_second, end_second, text, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := tx.ExecContext(ctx, ins, seg.CallID, seg.SpeakerLabel, seg.StartSecond, seg.EndSecond, seg.Text, seg.CreatedAt)
	return err
}

func upsertUsage(ctx context.Context, tx *sql.Tx, m Merge) error {
	const q = `
INSERT INTO transcription_usages (
  company_id, call_recording_id, provider, language, duration_seconds,
  cost_estimate, currency, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$8
)
ON CONFLICT (call_recording_id, provider, language)
DO UPDATE SET duration_seconds = EXCLUDED.duration_seconds,
              cost_estimate = EXCLUDED.cost_estimate,
              currency = EXCLUDED.currency,
              updated_at = EXCLUDED.updated_at
`
	u := m.Usage
	_, err := tx.ExecContext(ctx, q,
		u.CompanyID,
		u.CallRecordingID,
		u.Provider,
		u.Language,
		u.DurationSeconds,
		u.CostEstimate,
		u.Currency,
		m.Now,
	)
	return err
}

func updateRecordingStatus(ctx context.Context, tx *sql.Tx, m Merge) error {
	const q = `
UPDATE call_recordings
SET status = $2, error_message = '', updated_at = $3
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q, m.StatusUpdate.RecordingID, m.StatusUpdate.Status, m.Now)
	return err
}
