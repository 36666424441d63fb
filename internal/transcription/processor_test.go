package transcription

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"recording-pipeline/internal/recording"
)

const testSecret = "cb-secret"

func newTestProcessor(recs *recording.MemoryRepo) (*Processor, *MemoryStore) {
	store := NewMemoryStore(recs)
	p := NewProcessor(testSecret, store)
	p.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return p, store
}

func seedRecording(t *testing.T, repo *recording.MemoryRepo, status recording.Status, key string) recording.CallRecording {
	t.Helper()
	rec, err := repo.Create(context.Background(), recording.CallRecording{
		CompanyID:      7,
		PBXProviderID:  3,
		CallID:         42,
		RecordingURL:   "https://pbx.example.com/rec/42.wav",
		IdempotencyKey: key,
		Status:         status,
		CreatedAt:      time.Unix(1699990000, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("seed recording: %v", err)
	}
	return rec
}

func signedBody(body string) ([]byte, string) {
	b := []byte(body)
	return b, "sha256=" + Sign(testSecret, b)
}

func TestHandle_RejectsBadSignatureWithoutWrites(t *testing.T) {
	p, store := newTestProcessor(nil)

	body := []byte(`{"call_id": 42, "transcript": "hello"}`)
	_, err := p.Handle(context.Background(), body, "sha256="+Sign("other", body))
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if len(store.Transcriptions) != 0 || len(store.Segments) != 0 {
		t.Fatalf("rejected callback must cause zero writes")
	}
}

func TestHandle_MissingSecretIsServerError(t *testing.T) {
	p, _ := newTestProcessor(nil)
	p.secret = ""

	body, sig := signedBody(`{"call_id": 42, "transcript": "hello"}`)
	_, err := p.Handle(context.Background(), body, sig)
	if !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if IsAuthError(err) || IsClientError(err) {
		t.Fatalf("misconfiguration must not classify as client/auth error")
	}
}

func TestHandle_MergesTranscriptSegmentsUsageAndTransitions(t *testing.T) {
	repo := &recording.MemoryRepo{}
	rec := seedRecording(t, repo, recording.StatusCompleted, "abc")
	p, store := newTestProcessor(repo)

	body, sig := signedBody(`{
		"call_id": 42,
		"recording_id": "abc",
		"provider_name": "whisperd",
		"transcript_text": "hello",
		"duration_seconds": 10,
		"cost_estimate": 0.05,
		"speaker_segments": [
			{"start_second": 0, "end_second": 5, "speaker_label": "agent", "text": "hi"},
			{"start_second": 5, "end_second": 10, "speaker_label": "caller", "text": "hey"}
		]
	}`)

	res, err := p.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != ResultOK {
		t.Fatalf("expected ok, got %s (%s)", res.Status, res.Note)
	}
	if res.RecordingID != rec.ID || res.SegmentCount != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(store.Transcriptions) != 1 {
		t.Fatalf("expected one transcription row, got %d", len(store.Transcriptions))
	}
	if got := store.Transcriptions[0]; got.TranscriptText != "hello" || got.Language != "en" {
		t.Fatalf("unexpected transcription: %+v", got)
	}
	if len(store.SegmentsForCall(42)) != 2 {
		t.Fatalf("expected two segments")
	}
	if len(store.Usages) != 1 || store.Usages[0].CallRecordingID != rec.ID || store.Usages[0].Currency != "USD" {
		t.Fatalf("unexpected usage rows: %+v", store.Usages)
	}

	updated, _, err := repo.FindByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if updated.Status != recording.StatusTranscribed {
		t.Fatalf("expected transcribed, got %s", updated.Status)
	}
}

func TestHandle_ReplayIsIdempotent(t *testing.T) {
	repo := &recording.MemoryRepo{}
	seedRecording(t, repo, recording.StatusCompleted, "abc")
	p, store := newTestProcessor(repo)

	body, sig := signedBody(`{
		"call_id": 42,
		"recording_id": "abc",
		"provider_name": "whisperd",
		"transcript_text": "hello",
		"speaker_segments": [
			{"start_second": 0, "end_second": 5, "speaker_label": "agent", "text": "hi"},
			{"start_second": 5, "end_second": 10, "speaker_label": "caller", "text": "hey"}
		]
	}`)

	first, err := p.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	second, err := p.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.Status != ResultOK {
		t.Fatalf("replay of a transcribed recording is a no-op, got %s (%s)", second.Status, second.Note)
	}
	if second.TranscriptionID != first.TranscriptionID {
		t.Fatalf("replay must update the same transcription row")
	}
	if len(store.Transcriptions) != 1 {
		t.Fatalf("expected exactly one transcription row, got %d", len(store.Transcriptions))
	}
	if got := len(store.SegmentsForCall(42)); got != 2 {
		t.Fatalf("expected exactly two segment rows after replay, got %d", got)
	}
	if len(store.Usages) != 1 {
		t.Fatalf("expected exactly one usage row, got %d", len(store.Usages))
	}
}

func TestHandle_UnresolvedRecordingIsPartial(t *testing.T) {
	p, store := newTestProcessor(nil)

	body, sig := signedBody(`{"call_id": 42, "transcript": "hello"}`)
	res, err := p.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != ResultPartial {
		t.Fatalf("expected partial, got %s", res.Status)
	}
	if len(store.Transcriptions) != 1 {
		t.Fatalf("transcript must still land without a recording")
	}
	if len(store.Usages) != 0 {
		t.Fatalf("usage must be skipped without a recording")
	}
}

func TestHandle_RejectedTransitionKeepsTranscript(t *testing.T) {
	repo := &recording.MemoryRepo{}
	rec := seedRecording(t, repo, recording.StatusQueued, "abc")
	p, store := newTestProcessor(repo)

	body, sig := signedBody(`{"call_id": 42, "recording_id": "abc", "transcript": "hello"}`)
	res, err := p.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Status != ResultPartial {
		t.Fatalf("expected partial for queued -> transcribed, got %s", res.Status)
	}
	if len(store.Transcriptions) != 1 || len(store.Usages) != 1 {
		t.Fatalf("transcript and usage must still commit")
	}

	unchanged, _, err := repo.FindByID(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if unchanged.Status != recording.StatusQueued {
		t.Fatalf("rejected transition must leave status unchanged, got %s", unchanged.Status)
	}
}

func TestHandle_ResolvesByExplicitRecordingID(t *testing.T) {
	repo := &recording.MemoryRepo{}
	rec := seedRecording(t, repo, recording.StatusCompleted, "abc")
	p, _ := newTestProcessor(repo)

	body, sig := signedBody(fmt.Sprintf(`{"call_recording_id": %d, "transcript": "hello"}`, rec.ID))
	res, err := p.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.RecordingID != rec.ID {
		t.Fatalf("expected explicit id resolution, got %+v", res)
	}
	if res.CallID != 42 {
		t.Fatalf("call id must be derived from the recording, got %d", res.CallID)
	}
}

func TestHandle_FallsBackToMostRecentRecording(t *testing.T) {
	repo := &recording.MemoryRepo{}
	seedRecording(t, repo, recording.StatusCompleted, "old")
	newer, err := repo.Create(context.Background(), recording.CallRecording{
		CompanyID:      7,
		PBXProviderID:  3,
		CallID:         42,
		RecordingURL:   "https://pbx.example.com/rec/42b.wav",
		IdempotencyKey: "new",
		Status:         recording.StatusCompleted,
		CreatedAt:      time.Unix(1699995000, 0).UTC(),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	p, _ := newTestProcessor(repo)

	// No recording key at all: the explicit most-recent strategy applies.
	body, sig := signedBody(`{"call_id": 42, "transcript": "hello"}`)
	res, err := p.Handle(context.Background(), body, sig)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.RecordingID != newer.ID {
		t.Fatalf("expected most recent recording %d, got %d", newer.ID, res.RecordingID)
	}
}

func TestHandle_UnknownRecordingIDWithoutCallIsClientError(t *testing.T) {
	p, _ := newTestProcessor(nil)

	body, sig := signedBody(`{"call_recording_id": 999, "transcript": "hello"}`)
	_, err := p.Handle(context.Background(), body, sig)
	if !IsClientError(err) {
		t.Fatalf("expected client error, got %v", err)
	}
}
