package jobs

import (
	"context"
	"sync"
	"time"
)

// IngestionJob is one unit of per-account ingestion work.
type IngestionJob struct {
	ID         string    `json:"id"`
	CompanyID  int64     `json:"company_id"`
	AccountID  int64     `json:"account_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue moves ingestion jobs between the dispatcher and workers.
// Delivery is at-least-once; consumers must be idempotent.
type Queue interface {
	Enqueue(ctx context.Context, job IngestionJob) error

	// Dequeue blocks up to wait for a job. ok is false on timeout.
	Dequeue(ctx context.Context, wait time.Duration) (job IngestionJob, ok bool, err error)
}

// Lock is the mutual-exclusion primitive suppressing overlapping dispatch
// runs. The lease is bounded so a crashed run cannot starve the schedule.
type Lock interface {
	// Acquire returns a release token; ok is false when the lock is held.
	Acquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// MemoryQueue is an in-process queue useful for tests.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []IngestionJob

	// FailFor makes Enqueue fail for specific account ids (test hook).
	FailFor map[int64]error
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job IngestionJob) error {
	_ = ctx
	q.mu.Lock()
	defer q.mu.Unlock()
	if err, ok := q.FailFor[job.AccountID]; ok {
		return err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (IngestionJob, bool, error) {
	_ = ctx
	_ = wait
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return IngestionJob{}, false, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true, nil
}

// Len reports the number of queued jobs (test helper).
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// MemoryLock is an in-process lock useful for tests.
type MemoryLock struct {
	mu    sync.Mutex
	token string
}

func (l *MemoryLock) Acquire(ctx context.Context) (string, bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" {
		return "", false, nil
	}
	l.token = "held"
	return l.token, true, nil
}

func (l *MemoryLock) Release(ctx context.Context, token string) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token == token {
		l.token = ""
	}
	return nil
}
