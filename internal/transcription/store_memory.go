package transcription

import (
	"context"
	"sync"

	"recording-pipeline/internal/recording"
)

// MemoryStore is an in-memory store useful for tests and early development.
// It reuses recording.MemoryRepo for recording lookups so processor tests
// exercise the same replay semantics as the ingestion side.
type MemoryStore struct {
	Recordings *recording.MemoryRepo

	mu             sync.Mutex
	nextID         int64
	Transcriptions []CallTranscription
	Segments       []CallSpeakerSegment
	Usages         []TranscriptionUsage
}

func NewMemoryStore(recs *recording.MemoryRepo) *MemoryStore {
	if recs == nil {
		recs = &recording.MemoryRepo{}
	}
	return &MemoryStore{Recordings: recs}
}

func (s *MemoryStore) FindRecordingByID(ctx context.Context, id int64) (recording.CallRecording, bool, error) {
	return s.Recordings.FindByID(ctx, id)
}

func (s *MemoryStore) FindRecordingByCallAndKey(ctx context.Context, callID int64, key string) (recording.CallRecording, bool, error) {
	// Provider-agnostic key match: the callback does not know the PBX
	// provider id, only the recording key it was handed at submission time.
	rows, err := s.Recordings.ListByCall(ctx, callID)
	if err != nil {
		return recording.CallRecording{}, false, err
	}
	for _, r := range rows {
		if r.IdempotencyKey == key {
			return r, true, nil
		}
	}
	return recording.CallRecording{}, false, nil
}

func (s *MemoryStore) FindMostRecentRecordingForCall(ctx context.Context, callID int64) (recording.CallRecording, bool, error) {
	return s.Recordings.FindMostRecentByCall(ctx, callID)
}

func (s *MemoryStore) Merge(ctx context.Context, m Merge) (MergeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out MergeOutcome

	// Transcription upsert on (call_id, provider, language).
	updated := false
	for i := range s.Transcriptions {
		t := &s.Transcriptions[i]
		if t.CallID == m.Transcription.CallID && t.Provider == m.Transcription.Provider && t.Language == m.Transcription.Language {
			t.TranscriptText = m.Transcription.TranscriptText
			t.DurationSeconds = m.Transcription.DurationSeconds
			t.ConfidenceScore = m.Transcription.ConfidenceScore
			t.UpdatedAt = m.Now
			out.TranscriptionID = t.ID
			updated = true
			break
		}
	}
	if !updated {
		s.nextID++
		t := m.Transcription
		t.ID = s.nextID
		s.Transcriptions = append(s.Transcriptions, t)
		out.TranscriptionID = t.ID
	}

	// Replace-matching-range segment policy.
	for _, seg := range m.Segments {
		kept := s.Segments[:0]
		for _, existing := range s.Segments {
			if existing.CallID == seg.CallID && existing.StartSecond == seg.StartSecond && existing.EndSecond == seg.EndSecond {
				continue
			}
			kept = append(kept, existing)
		}
		s.Segments = kept

		s.nextID++
		seg.ID = s.nextID
		s.Segments = append(s.Segments, seg)
	}

	// Usage upsert on (call_recording_id, provider, language).
	if m.Usage != nil {
		found := false
		for i := range s.Usages {
			u := &s.Usages[i]
			if u.CallRecordingID == m.Usage.CallRecordingID && u.Provider == m.Usage.Provider && u.Language == m.Usage.Language {
				u.DurationSeconds = m.Usage.DurationSeconds
				u.CostEstimate = m.Usage.CostEstimate
				u.Currency = m.Usage.Currency
				u.UpdatedAt = m.Now
				found = true
				break
			}
		}
		if !found {
			s.nextID++
			u := *m.Usage
			u.ID = s.nextID
			s.Usages = append(s.Usages, u)
		}
	}

	if m.StatusUpdate != nil {
		if err := s.Recordings.UpdateStatus(ctx, m.StatusUpdate.RecordingID, m.StatusUpdate.Status, "", m.Now); err != nil {
			return MergeOutcome{}, err
		}
	}

	return out, nil
}

// SegmentsForCall returns the stored segments for a call (test helper).
func (s *MemoryStore) SegmentsForCall(callID int64) []CallSpeakerSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []CallSpeakerSegment
	for _, seg := range s.Segments {
		if seg.CallID == callID {
			out = append(out, seg)
		}
	}
	return out
}
