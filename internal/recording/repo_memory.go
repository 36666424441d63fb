package recording

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepo is an in-memory repository useful for tests and early development.
// It enforces the same identity invariant as the Postgres implementation.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []CallRecording
}

func (r *MemoryRepo) FindByID(ctx context.Context, id int64) (CallRecording, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows {
		if rec.ID == id {
			return rec, true, nil
		}
	}
	return CallRecording{}, false, nil
}

func (r *MemoryRepo) FindByCallAndKey(ctx context.Context, callID, providerID int64, key string) (CallRecording, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.rows {
		if rec.CallID == callID && rec.PBXProviderID == providerID && rec.IdempotencyKey == key {
			return rec, true, nil
		}
	}
	return CallRecording{}, false, nil
}

func (r *MemoryRepo) FindMostRecentByCall(ctx context.Context, callID int64) (CallRecording, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var best CallRecording
	found := false
	for _, rec := range r.rows {
		if rec.CallID != callID {
			continue
		}
		if !found || rec.CreatedAt.After(best.CreatedAt) || (rec.CreatedAt.Equal(best.CreatedAt) && rec.ID > best.ID) {
			best = rec
			found = true
		}
	}
	return best, found, nil
}

func (r *MemoryRepo) ListByCall(ctx context.Context, callID int64) ([]CallRecording, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallRecording
	for _, rec := range r.rows {
		if rec.CallID == callID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Create(ctx context.Context, rec CallRecording) (CallRecording, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.CallID == rec.CallID && existing.PBXProviderID == rec.PBXProviderID && existing.IdempotencyKey == rec.IdempotencyKey {
			return CallRecording{}, fmt.Errorf("duplicate recording for call %d key %q", rec.CallID, rec.IdempotencyKey)
		}
	}
	r.nextID++
	rec.ID = r.nextID
	r.rows = append(r.rows, rec)
	return rec, nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id int64, status Status, errorMessage string, now time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Status = status
			r.rows[i].ErrorMessage = errorMessage
			r.rows[i].UpdatedAt = now
			return nil
		}
	}
	return ErrNotFound
}
