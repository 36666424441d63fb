package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"recording-pipeline/internal/pbx"
	"recording-pipeline/internal/recording"
)

const dequeueWait = 5 * time.Second

// Worker consumes ingestion jobs: it fetches the account's recordings from
// the PBX (with retry; providers flap) and ingests each notice. Ingestion is
// idempotent, so a job retried after a partial failure is safe to replay.
type Worker struct {
	queue    Queue
	accounts pbx.AccountRepository
	client   pbx.Client
	ingest   *recording.Service
	log      *slog.Logger

	// fetchTimeout caps the total backoff window per account fetch.
	fetchTimeout time.Duration
}

func NewWorker(queue Queue, accounts pbx.AccountRepository, client pbx.Client, ingest *recording.Service, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		queue:        queue,
		accounts:     accounts,
		client:       client,
		ingest:       ingest,
		log:          log,
		fetchTimeout: 2 * time.Minute,
	}
}

// Run consumes jobs until ctx is canceled. Job failures are logged and never
// stop the loop.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ok, err := w.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error("dequeue failed", "err", err)
			continue
		}
		if !ok {
			continue
		}
		w.Process(ctx, job)
	}
}

// Process handles one job end to end.
func (w *Worker) Process(ctx context.Context, job IngestionJob) {
	log := w.log.With("job_id", job.ID, "account_id", job.AccountID, "company_id", job.CompanyID)

	acct, ok, err := w.accounts.FindAccount(ctx, job.AccountID)
	if err != nil {
		log.Error("account lookup failed", "err", err)
		return
	}
	if !ok {
		log.Warn("account no longer exists, dropping job")
		return
	}
	if acct.Status != pbx.AccountStatusActive {
		log.Info("account no longer active, dropping job")
		return
	}

	notices, err := w.fetchWithRetry(ctx, acct)
	if err != nil {
		log.Error("pbx fetch failed", "err", err)
		return
	}

	created, replayed, failed := 0, 0, 0
	for _, n := range notices {
		_, isNew, err := w.ingest.Ingest(ctx, recording.IngestRequest{
			CompanyID:       acct.CompanyID,
			PBXProviderID:   acct.PBXProviderID,
			CallID:          n.CallID,
			IdempotencyKey:  n.IdempotencyKey,
			RecordingURL:    n.RecordingURL,
			Codec:           n.Codec,
			DurationSeconds: n.DurationSeconds,
			StorageProvider: n.StorageProvider,
			StoragePath:     n.StoragePath,
			FileSizeBytes:   n.FileSizeBytes,
		})
		if err != nil {
			failed++
			log.Error("ingest notice failed", "call_id", n.CallID, "err", err)
			continue
		}
		if isNew {
			created++
		} else {
			replayed++
		}
	}

	log.Info("ingestion job complete",
		"notices", len(notices),
		"created", created,
		"replayed", replayed,
		"failed", failed,
	)
}

func (w *Worker) fetchWithRetry(ctx context.Context, acct pbx.PBXAccount) ([]pbx.RecordingNotice, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = w.fetchTimeout

	var notices []pbx.RecordingNotice
	op := func() error {
		var err error
		notices, err = w.client.FetchRecordings(ctx, acct)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return notices, nil
}
