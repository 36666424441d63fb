package recording

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists call recordings.
//
// NOTE: assumes the following table exists:
// - call_recordings (id BIGSERIAL, company_id, pbx_provider_id, call_id,
//   recording_url, codec, duration_seconds, storage_provider, storage_path,
//   file_size_bytes, idempotency_key, status, error_message, created_at, updated_at)
//
// with the identity constraint:
// UNIQUE (call_id, pbx_provider_id, idempotency_key)
//
// The service performs a lookup before Create; the unique constraint closes
// the remaining race window between two concurrent deliveries of the same
// notification, surfacing the loser as a retryable error.
type PostgresRepo struct {
	DB *sql.DB
}

const recordingColumns = `
id, company_id, pbx_provider_id, call_id, recording_url, codec, duration_seconds,
storage_provider, storage_path, file_size_bytes, idempotency_key, status,
error_message, created_at, updated_at
`

func scanRecording(row *sql.Row) (CallRecording, error) {
	var rec CallRecording
	err := row.Scan(
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
	return rec, err
}

func (r *PostgresRepo) FindByID(ctx context.Context, id int64) (CallRecording, bool, error) {
	const q = `
SELECT ` + recordingColumns + `
FROM call_recordings
WHERE id = $1
`
	rec, err := scanRecording(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecording{}, false, nil
		}
		return CallRecording{}, false, err
	}
	return rec, true, nil
}

func (r *PostgresRepo) FindByCallAndKey(ctx context.Context, callID, providerID int64, key string) (CallRecording, bool, error) {
	const q = `
SELECT ` + recordingColumns + `
FROM call_recordings
WHERE call_id = $1 AND pbx_provider_id = $2 AND idempotency_key = $3
LIMIT 1
`
	rec, err := scanRecording(r.DB.QueryRowContext(ctx, q, callID, providerID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecording{}, false, nil
		}
		return CallRecording{}, false, err
	}
	return rec, true, nil
}

func (r *PostgresRepo) FindMostRecentByCall(ctx context.Context, callID int64) (CallRecording, bool, error) {
	const q = `
SELECT ` + recordingColumns + `
FROM call_recordings
WHERE call_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
`
	rec, err := scanRecording(r.DB.QueryRowContext(ctx, q, callID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRecording{}, false, nil
		}
		return CallRecording{}, false, err
	}
	return rec, true, nil
}

func (r *PostgresRepo) ListByCall(ctx context.Context, callID int64) ([]CallRecording, error) {
	const q = `
SELECT ` + recordingColumns + `
FROM call_recordings
WHERE call_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.DB.QueryContext(ctx, q, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallRecording
	for rows.Next() {
		var rec CallRecording
		if err := rows.Scan(
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
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Create(ctx context.Context, rec CallRecording) (CallRecording, error) {
	const q = `
INSERT INTO call_recordings (
  company_id, pbx_provider_id, call_id, recording_url, codec, duration_seconds,
  storage_provider, storage_path, file_size_bytes, idempotency_key, status,
  error_message, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)
RETURNING id
`
	err := r.DB.QueryRowContext(ctx, q,
		rec.CompanyID,
		rec.PBXProviderID,
		rec.CallID,
		rec.RecordingURL,
		rec.Codec,
		rec.DurationSeconds,
		rec.StorageProvider,
		rec.StoragePath,
		rec.FileSizeBytes,
		rec.IdempotencyKey,
		rec.Status,
		rec.ErrorMessage,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return CallRecording{}, err
	}
	return rec, nil
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id int64, status Status, errorMessage string, now time.Time) error {
	const q = `
UPDATE call_recordings
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`
	res, err := r.DB.ExecContext(ctx, q, id, status, errorMessage, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
