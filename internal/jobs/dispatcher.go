package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"recording-pipeline/internal/pbx"
)

// DispatcherConfig is resolved once at process start; Enabled is passed in
// explicitly rather than read from ambient environment state mid-run.
type DispatcherConfig struct {
	Enabled bool
}

// Dispatcher enumerates active PBX accounts and enqueues one ingestion job
// per account. Overlap between runs is suppressed by the lock: a run that is
// still executing holds the lease, and the next scheduled run skips.
type Dispatcher struct {
	cfg      DispatcherConfig
	accounts pbx.AccountRepository
	queue    Queue
	lock     Lock
	log      *slog.Logger
	clock    func() time.Time
}

func NewDispatcher(cfg DispatcherConfig, accounts pbx.AccountRepository, queue Queue, lock Lock, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		cfg:      cfg,
		accounts: accounts,
		queue:    queue,
		lock:     lock,
		log:      log,
		clock:    time.Now,
	}
}

// RunOnce performs one dispatch pass and returns the number of jobs enqueued.
//
// Failure to enumerate accounts aborts the run. Failure to enqueue one
// account's job is logged and does not prevent dispatch for other accounts.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	if !d.cfg.Enabled {
		d.log.Info("ingestion dispatch disabled, skipping run")
		return 0, nil
	}

	token, ok, err := d.lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("dispatch lock: %w", err)
	}
	if !ok {
		d.log.Info("previous dispatch run still holds the lock, skipping")
		return 0, nil
	}
	defer func() {
		if err := d.lock.Release(ctx, token); err != nil {
			d.log.Warn("dispatch lock release failed", "err", err)
		}
	}()

	accounts, err := d.accounts.ListActiveAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active accounts: %w", err)
	}

	now := d.clock().UTC()
	dispatched := 0
	for _, acct := range accounts {
		job := IngestionJob{
			ID:         uuid.NewString(),
			CompanyID:  acct.CompanyID,
			AccountID:  acct.ID,
			EnqueuedAt: now,
		}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			d.log.Error("enqueue ingestion job failed",
				"account_id", acct.ID,
				"company_id", acct.CompanyID,
				"err", err,
			)
			continue
		}
		dispatched++
	}

	d.log.Info("ingestion dispatch complete", "accounts", len(accounts), "dispatched", dispatched)
	return dispatched, nil
}
