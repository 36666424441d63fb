package recording

import "fmt"

// Status is the closed set of lifecycle states for a CallRecording.
type Status string

const (
	StatusUploaded     Status = "uploaded"
	StatusQueued       Status = "queued"
	StatusProcessing   Status = "processing"
	StatusCompleted    Status = "completed"
	StatusTranscribing Status = "transcribing"
	StatusTranscribed  Status = "transcribed"
	StatusFailed       Status = "failed"
)

// transitions is the allowed-successor table. Every state has an explicit
// entry; terminal states map to an empty set. PBX and transcription providers
// deliver events out of order and with duplicates, so regressions (for
// example a late duplicate "queued" after processing started) are rejected
// here rather than silently applied.
//
// completed transitions directly to transcribed as well as via transcribing:
// a callback may finalize a recording that never reported an explicit
// transcribing hop.
var transitions = map[Status][]Status{
	StatusUploaded:     {StatusQueued},
	StatusQueued:       {StatusProcessing},
	StatusProcessing:   {StatusCompleted, StatusFailed},
	StatusCompleted:    {StatusTranscribing, StatusTranscribed, StatusFailed},
	StatusTranscribing: {StatusTranscribed, StatusFailed},
	StatusTranscribed:  {},
	StatusFailed:       {},
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	succ, ok := transitions[s]
	return ok && len(succ) == 0
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError names the rejected (from -> to) pair.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid recording transition %s -> %s", e.From, e.To)
}

// Transition applies the move in place if allowed.
// On success any stored error message is cleared unless the target is failed.
func Transition(rec *CallRecording, to Status) error {
	if !CanTransition(rec.Status, to) {
		return &InvalidTransitionError{From: rec.Status, To: to}
	}
	rec.Status = to
	if to != StatusFailed {
		rec.ErrorMessage = ""
	}
	return nil
}

// MarkFailed is a constrained transition to failed that records the reason.
// It fails if failed is not reachable from the current state.
func MarkFailed(rec *CallRecording, message string) error {
	if err := Transition(rec, StatusFailed); err != nil {
		return err
	}
	rec.ErrorMessage = message
	return nil
}
