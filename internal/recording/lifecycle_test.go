package recording

import (
	"errors"
	"testing"
)

func TestCanTransition_Table(t *testing.T) {
	allowed := map[Status][]Status{
		StatusUploaded:     {StatusQueued},
		StatusQueued:       {StatusProcessing},
		StatusProcessing:   {StatusCompleted, StatusFailed},
		StatusCompleted:    {StatusTranscribing, StatusTranscribed, StatusFailed},
		StatusTranscribing: {StatusTranscribed, StatusFailed},
		StatusTranscribed:  {},
		StatusFailed:       {},
	}
	all := []Status{
		StatusUploaded, StatusQueued, StatusProcessing, StatusCompleted,
		StatusTranscribing, StatusTranscribed, StatusFailed,
	}

	for from, succ := range allowed {
		want := map[Status]bool{}
		for _, s := range succ {
			want[s] = true
		}
		for _, to := range all {
			if got := CanTransition(from, to); got != want[to] {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want[to])
			}
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	all := []Status{
		StatusUploaded, StatusQueued, StatusProcessing, StatusCompleted,
		StatusTranscribing, StatusTranscribed, StatusFailed,
	}
	for _, terminal := range []Status{StatusTranscribed, StatusFailed} {
		if !terminal.Terminal() {
			t.Fatalf("expected %s to be terminal", terminal)
		}
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Fatalf("terminal state %s must not transition to %s", terminal, to)
			}
		}
	}
}

func TestTransition_RejectsRegression(t *testing.T) {
	rec := CallRecording{Status: StatusProcessing}
	err := Transition(&rec, StatusQueued)
	if err == nil {
		t.Fatalf("expected error for processing -> queued")
	}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if ite.From != StatusProcessing || ite.To != StatusQueued {
		t.Fatalf("error should name the pair, got %s -> %s", ite.From, ite.To)
	}
	if rec.Status != StatusProcessing {
		t.Fatalf("status must be unchanged on rejection, got %s", rec.Status)
	}
}

func TestTransition_ClearsErrorMessageUnlessFailed(t *testing.T) {
	rec := CallRecording{Status: StatusQueued, ErrorMessage: "stale failure"}
	if err := Transition(&rec, StatusProcessing); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", rec.ErrorMessage)
	}

	rec = CallRecording{Status: StatusProcessing, ErrorMessage: "old"}
	if err := MarkFailed(&rec, "upload corrupt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
	if rec.ErrorMessage != "upload corrupt" {
		t.Fatalf("expected failure reason recorded, got %q", rec.ErrorMessage)
	}
}

func TestMarkFailed_RejectedFromTerminal(t *testing.T) {
	rec := CallRecording{Status: StatusTranscribed}
	if err := MarkFailed(&rec, "late failure"); err == nil {
		t.Fatalf("expected error marking a transcribed recording failed")
	}
	if rec.Status != StatusTranscribed || rec.ErrorMessage != "" {
		t.Fatalf("record must be untouched on rejection")
	}
}

