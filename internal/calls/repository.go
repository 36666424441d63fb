package calls

import (
	"context"
	"database/sql"
	"errors"
)

// Repository abstracts call lookup.
//
// This pipeline never writes calls; the interface is intentionally read-only.
type Repository interface {
	FindByID(ctx context.Context, id int64) (Call, bool, error)
}

// PostgresRepo reads calls from the calls table.
//
// NOTE: assumes the following table exists:
// - calls (id, company_id, pbx_account_id, call_uid, direction, from_number,
//   to_number, started_at, ended_at, duration_seconds, status, created_at, updated_at)
type PostgresRepo struct {
	DB *sql.DB
}

func (r *PostgresRepo) FindByID(ctx context.Context, id int64) (Call, bool, error) {
	const q = `
SELECT id, company_id, pbx_account_id, call_uid, direction, from_number, to_number,
       started_at, ended_at, duration_seconds, status, created_at, updated_at
FROM calls
WHERE id = $1
`
	var c Call
	err := r.DB.QueryRowContext(ctx, q, id).Scan(
		&c.ID,
		&c.CompanyID,
		&c.PBXAccountID,
		&c.CallUID,
		&c.Direction,
		&c.FromNumber,
		&c.ToNumber,
		&c.StartedAt,
		&c.EndedAt,
		&c.DurationSeconds,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, false, nil
		}
		return Call{}, false, err
	}
	return c, true, nil
}

// MemoryRepo is an in-memory call lookup useful for tests and early development.
type MemoryRepo struct {
	Calls []Call
}

func (r *MemoryRepo) FindByID(ctx context.Context, id int64) (Call, bool, error) {
	_ = ctx
	for _, c := range r.Calls {
		if c.ID == id {
			return c, true, nil
		}
	}
	return Call{}, false, nil
}
