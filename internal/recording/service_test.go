package recording

import (
	"context"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t0 := time.Unix(1700000000, 0).UTC()
	return func() time.Time { return t0 }
}

func validIngestRequest() IngestRequest {
	return IngestRequest{
		CompanyID:       7,
		PBXProviderID:   3,
		CallID:          42,
		IdempotencyKey:  "abc",
		RecordingURL:    "https://pbx.example.com/rec/42.wav",
		DurationSeconds: 120,
		StorageProvider: "s3",
		StoragePath:     "recordings/42.wav",
		FileSizeBytes:   204800,
	}
}

func TestIngest_CreatesQueuedRecording(t *testing.T) {
	svc := NewService(&MemoryRepo{})
	svc.clock = fixedClock()

	rec, created, err := svc.Ingest(context.Background(), validIngestRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !created {
		t.Fatalf("expected created=true for first ingest")
	}
	if rec.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if rec.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", rec.Status)
	}
}

func TestIngest_ReplayWithSameKeyReturnsExisting(t *testing.T) {
	svc := NewService(&MemoryRepo{})
	svc.clock = fixedClock()

	first, created, err := svc.Ingest(context.Background(), validIngestRequest())
	if err != nil || !created {
		t.Fatalf("setup failed: created=%v err=%v", created, err)
	}

	second, created, err := svc.Ingest(context.Background(), validIngestRequest())
	if err != nil {
		t.Fatalf("expected no error on replay, got %v", err)
	}
	if created {
		t.Fatalf("replay must not create a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("replay must resolve to the same recording, got %d and %d", first.ID, second.ID)
	}
	if second.Status != first.Status {
		t.Fatalf("replay must leave status unchanged, got %s", second.Status)
	}
}

func TestIngest_KeylessReplayResolvesByCall(t *testing.T) {
	svc := NewService(&MemoryRepo{})
	svc.clock = fixedClock()

	req := validIngestRequest()
	req.IdempotencyKey = ""

	first, created, err := svc.Ingest(context.Background(), req)
	if err != nil || !created {
		t.Fatalf("setup failed: created=%v err=%v", created, err)
	}

	second, created, err := svc.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("keyless replay must match the call's existing recording")
	}
}

func TestIngest_DistinctKeysCreateDistinctRecordings(t *testing.T) {
	svc := NewService(&MemoryRepo{})
	svc.clock = fixedClock()

	first, _, err := svc.Ingest(context.Background(), validIngestRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	req := validIngestRequest()
	req.IdempotencyKey = "def"
	second, created, err := svc.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !created {
		t.Fatalf("a new idempotency key is a new recording")
	}
	if second.ID == first.ID {
		t.Fatalf("expected distinct rows")
	}
}

func TestIngest_RejectsInvalidRequests(t *testing.T) {
	svc := NewService(&MemoryRepo{})

	bad := []IngestRequest{
		{},
		{CompanyID: 7, PBXProviderID: 3, CallID: 42},                                              // missing URL
		{CompanyID: 0, PBXProviderID: 3, CallID: 42, RecordingURL: "https://x"},                   // no company
		{CompanyID: 7, PBXProviderID: 3, CallID: 42, RecordingURL: "https://x", DurationSeconds: -1},
	}
	for i, req := range bad {
		if _, _, err := svc.Ingest(context.Background(), req); err != ErrInvalidArgument {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestGet_ScopesByCompany(t *testing.T) {
	repo := &MemoryRepo{}
	svc := NewService(repo)
	svc.clock = fixedClock()

	rec, _, err := svc.Ingest(context.Background(), validIngestRequest())
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := svc.Get(context.Background(), 7, rec.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), 8, rec.ID); err != ErrNotFound {
		t.Fatalf("cross-company lookup must look like not-found, got %v", err)
	}
}
