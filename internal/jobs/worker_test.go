package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"recording-pipeline/internal/pbx"
	"recording-pipeline/internal/recording"
)

type fakeClient struct {
	notices []pbx.RecordingNotice
	// failures counts down; FetchRecordings errors until it reaches zero.
	failures int
	calls    int
}

func (c *fakeClient) FetchRecordings(ctx context.Context, account pbx.PBXAccount) ([]pbx.RecordingNotice, error) {
	c.calls++
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("pbx timeout")
	}
	return c.notices, nil
}

func testWorker(client *fakeClient) (*Worker, *recording.MemoryRepo) {
	repo := &recording.MemoryRepo{}
	accounts := &pbx.MemoryRepo{Accounts: []pbx.PBXAccount{
		{ID: 1, CompanyID: 7, PBXProviderID: 3, Status: pbx.AccountStatusActive},
	}}
	w := NewWorker(&MemoryQueue{}, accounts, client, recording.NewService(repo), slog.Default())
	w.fetchTimeout = 200 * time.Millisecond
	return w, repo
}

func TestProcess_IngestsEachNotice(t *testing.T) {
	client := &fakeClient{notices: []pbx.RecordingNotice{
		{CallID: 42, IdempotencyKey: "a", RecordingURL: "https://pbx/rec/a.wav"},
		{CallID: 43, IdempotencyKey: "b", RecordingURL: "https://pbx/rec/b.wav"},
	}}
	w, repo := testWorker(client)

	w.Process(context.Background(), IngestionJob{ID: "j1", CompanyID: 7, AccountID: 1})

	for _, callID := range []int64{42, 43} {
		if _, ok, _ := repo.FindMostRecentByCall(context.Background(), callID); !ok {
			t.Fatalf("expected recording for call %d", callID)
		}
	}
}

func TestProcess_ReplayedJobCreatesNoDuplicates(t *testing.T) {
	client := &fakeClient{notices: []pbx.RecordingNotice{
		{CallID: 42, IdempotencyKey: "a", RecordingURL: "https://pbx/rec/a.wav"},
	}}
	w, repo := testWorker(client)

	job := IngestionJob{ID: "j1", CompanyID: 7, AccountID: 1}
	w.Process(context.Background(), job)
	w.Process(context.Background(), job)

	rows, _ := repo.ListByCall(context.Background(), 42)
	if len(rows) != 1 {
		t.Fatalf("replayed job must not duplicate recordings, got %d rows", len(rows))
	}
}

func TestProcess_RetriesFetch(t *testing.T) {
	client := &fakeClient{
		failures: 2,
		notices:  []pbx.RecordingNotice{{CallID: 42, IdempotencyKey: "a", RecordingURL: "https://pbx/rec/a.wav"}},
	}
	w, repo := testWorker(client)

	w.Process(context.Background(), IngestionJob{ID: "j1", CompanyID: 7, AccountID: 1})

	if client.calls < 3 {
		t.Fatalf("expected fetch retries, got %d calls", client.calls)
	}
	if _, ok, _ := repo.FindMostRecentByCall(context.Background(), 42); !ok {
		t.Fatalf("expected recording after retries")
	}
}

func TestProcess_DropsJobForInactiveAccount(t *testing.T) {
	client := &fakeClient{notices: []pbx.RecordingNotice{
		{CallID: 42, IdempotencyKey: "a", RecordingURL: "https://pbx/rec/a.wav"},
	}}
	w, repo := testWorker(client)

	// Account 2 does not exist; account 1 exists but job 3 points elsewhere.
	w.Process(context.Background(), IngestionJob{ID: "j2", CompanyID: 7, AccountID: 2})

	if client.calls != 0 {
		t.Fatalf("missing account must not trigger a fetch")
	}
	if _, ok, _ := repo.FindMostRecentByCall(context.Background(), 42); ok {
		t.Fatalf("missing account must not ingest")
	}
}
