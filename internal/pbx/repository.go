package pbx

import (
	"context"
	"database/sql"
	"errors"
)

// AccountRepository abstracts PBX account access for dispatch and for the
// ingestion boundary's provider-ownership check. Account CRUD lives elsewhere.
type AccountRepository interface {
	ListActiveAccounts(ctx context.Context) ([]PBXAccount, error)
	FindAccount(ctx context.Context, id int64) (PBXAccount, bool, error)
}

// PostgresRepo reads PBX accounts.
//
// NOTE: assumes the following table exists:
// - pbx_accounts (id, company_id, pbx_provider_id, name, status,
//   last_synced_at, created_at, updated_at)
type PostgresRepo struct {
	DB *sql.DB
}

func (r *PostgresRepo) ListActiveAccounts(ctx context.Context) ([]PBXAccount, error) {
	const q = `
SELECT id, company_id, pbx_provider_id, name, status, last_synced_at, created_at, updated_at
FROM pbx_accounts
WHERE status = $1
ORDER BY id ASC
`
	rows, err := r.DB.QueryContext(ctx, q, AccountStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PBXAccount
	for rows.Next() {
		var a PBXAccount
		if err := rows.Scan(
			&a.ID,
			&a.CompanyID,
			&a.PBXProviderID,
			&a.Name,
			&a.Status,
			&a.LastSyncedAt,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) FindAccount(ctx context.Context, id int64) (PBXAccount, bool, error) {
	const q = `
SELECT id, company_id, pbx_provider_id, name, status, last_synced_at, created_at, updated_at
FROM pbx_accounts
WHERE id = $1
`
	var a PBXAccount
	err := r.DB.QueryRowContext(ctx, q, id).Scan(
		&a.ID,
		&a.CompanyID,
		&a.PBXProviderID,
		&a.Name,
		&a.Status,
		&a.LastSyncedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PBXAccount{}, false, nil
		}
		return PBXAccount{}, false, err
	}
	return a, true, nil
}

// MemoryRepo is an in-memory account repository useful for tests and early development.
type MemoryRepo struct {
	Accounts []PBXAccount
}

func (r *MemoryRepo) ListActiveAccounts(ctx context.Context) ([]PBXAccount, error) {
	_ = ctx
	var out []PBXAccount
	for _, a := range r.Accounts {
		if a.Status == AccountStatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) FindAccount(ctx context.Context, id int64) (PBXAccount, bool, error) {
	_ = ctx
	for _, a := range r.Accounts {
		if a.ID == id {
			return a, true, nil
		}
	}
	return PBXAccount{}, false, nil
}
