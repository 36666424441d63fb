package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"recording-pipeline/internal/pbx"
)

func activeAccounts() *pbx.MemoryRepo {
	return &pbx.MemoryRepo{Accounts: []pbx.PBXAccount{
		{ID: 1, CompanyID: 7, PBXProviderID: 3, Status: pbx.AccountStatusActive},
		{ID: 2, CompanyID: 7, PBXProviderID: 3, Status: pbx.AccountStatusActive},
		{ID: 3, CompanyID: 9, PBXProviderID: 4, Status: pbx.AccountStatusDisabled},
	}}
}

func TestRunOnce_DispatchesOneJobPerActiveAccount(t *testing.T) {
	q := &MemoryQueue{}
	d := NewDispatcher(DispatcherConfig{Enabled: true}, activeAccounts(), q, &MemoryLock{}, slog.Default())

	n, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 dispatched jobs, got %d", n)
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", q.Len())
	}

	job, ok, _ := q.Dequeue(context.Background(), 0)
	if !ok || job.AccountID != 1 || job.CompanyID != 7 {
		t.Fatalf("unexpected first job: %+v", job)
	}
	if job.ID == "" {
		t.Fatalf("expected job id assigned")
	}
}

func TestRunOnce_DisabledDispatchesNothing(t *testing.T) {
	q := &MemoryQueue{}
	d := NewDispatcher(DispatcherConfig{Enabled: false}, activeAccounts(), q, &MemoryLock{}, slog.Default())

	n, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 0 || q.Len() != 0 {
		t.Fatalf("disabled dispatch must enqueue nothing")
	}
}

func TestRunOnce_SkipsWhenLockHeld(t *testing.T) {
	q := &MemoryQueue{}
	lock := &MemoryLock{}
	if _, ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("setup: lock should acquire")
	}

	d := NewDispatcher(DispatcherConfig{Enabled: true}, activeAccounts(), q, lock, slog.Default())
	n, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 0 || q.Len() != 0 {
		t.Fatalf("held lock must suppress the run")
	}
}

func TestRunOnce_ReleasesLock(t *testing.T) {
	lock := &MemoryLock{}
	d := NewDispatcher(DispatcherConfig{Enabled: true}, activeAccounts(), &MemoryQueue{}, lock, slog.Default())

	if _, err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("lock must be released after the run")
	}
}

func TestRunOnce_PerAccountEnqueueIsolation(t *testing.T) {
	q := &MemoryQueue{FailFor: map[int64]error{1: errors.New("redis hiccup")}}
	d := NewDispatcher(DispatcherConfig{Enabled: true}, activeAccounts(), q, &MemoryLock{}, slog.Default())

	n, err := d.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("one failed enqueue must not abort the run, got %v", err)
	}
	if n != 1 || q.Len() != 1 {
		t.Fatalf("expected the other account still dispatched, got n=%d len=%d", n, q.Len())
	}
}

type failingAccounts struct{}

func (failingAccounts) ListActiveAccounts(ctx context.Context) ([]pbx.PBXAccount, error) {
	return nil, errors.New("db down")
}

func (failingAccounts) FindAccount(ctx context.Context, id int64) (pbx.PBXAccount, bool, error) {
	return pbx.PBXAccount{}, false, errors.New("db down")
}

func TestRunOnce_EnumerationFailureAbortsRun(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{Enabled: true}, failingAccounts{}, &MemoryQueue{}, &MemoryLock{}, slog.Default())
	if _, err := d.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error when account enumeration fails")
	}
}
