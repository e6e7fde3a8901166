package session

import (
	"testing"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
)

func TestNewSession(t *testing.T) {
	s, err := NewSession("user-1", "balcony")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	if s.ID().IsZero() {
		t.Error("Expected a generated session ID")
	}
	if s.Status() != model.SessionStatusActive {
		t.Errorf("Expected active status, got %s", s.Status())
	}
	if s.CurrentLineIndex() != 0 || s.RetryCount() != 0 {
		t.Errorf("Expected fresh counters, got %d/%d", s.CurrentLineIndex(), s.RetryCount())
	}
	if s.CompletedAt() != nil {
		t.Error("CompletedAt should be nil for a new session")
	}
}

func TestNewSession_Validation(t *testing.T) {
	if _, err := NewSession("", "scene"); err == nil {
		t.Error("Expected error for empty user ID")
	}
	if _, err := NewSession("user", " "); err == nil {
		t.Error("Expected error for empty scene ID")
	}
}

func TestSession_Advance(t *testing.T) {
	s, _ := NewSession("user", "scene")
	s.RecordRetry()
	s.RecordRetry()

	if err := s.Advance(1); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.CurrentLineIndex() != 1 {
		t.Errorf("Expected line 1, got %d", s.CurrentLineIndex())
	}
	if s.RetryCount() != 0 {
		t.Errorf("Advance should reset retry count, got %d", s.RetryCount())
	}

	if err := s.Advance(0); err == nil {
		t.Error("Expected error when moving backwards")
	}
}

func TestSession_Complete(t *testing.T) {
	s, _ := NewSession("user", "scene")

	if err := s.Complete("Well done."); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if s.Status() != model.SessionStatusCompleted {
		t.Errorf("Expected completed, got %s", s.Status())
	}
	if s.SummaryFeedback() != "Well done." {
		t.Errorf("Unexpected summary %q", s.SummaryFeedback())
	}
	if s.CompletedAt() == nil {
		t.Error("CompletedAt should be set")
	}

	if err := s.Abandon(); err == nil {
		t.Error("Completed session should not be abandonable")
	}
}

func TestSession_Abandon(t *testing.T) {
	s, _ := NewSession("user", "scene")

	if err := s.Abandon(); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if s.IsActive() {
		t.Error("Abandoned session should not be active")
	}
	if err := s.Complete(""); err == nil {
		t.Error("Abandoned session should not complete")
	}
}

func TestSession_Reconcile(t *testing.T) {
	s, _ := NewSession("user", "scene")
	s.Reconcile(Progress{LineIndex: 3, RetryCount: 1})

	if s.CurrentLineIndex() != 3 || s.RetryCount() != 1 {
		t.Errorf("Expected 3/1 after reconcile, got %d/%d", s.CurrentLineIndex(), s.RetryCount())
	}
}

func TestNewHumanDelivery(t *testing.T) {
	id := model.NewSessionID()
	fb := "Accepted (92%)."

	d, err := NewHumanDelivery(id, 0, 1, "hello", 0.92, VerdictAccepted, &fb)
	if err != nil {
		t.Fatalf("NewHumanDelivery failed: %v", err)
	}
	if d.Score == nil || *d.Score != 0.92 {
		t.Errorf("Unexpected score %v", d.Score)
	}
	if d.FeedbackText() != fb {
		t.Errorf("Unexpected feedback %q", d.FeedbackText())
	}

	if _, err := NewHumanDelivery(id, 0, 1, "hello", 0.9, VerdictAIGenerated, nil); err == nil {
		t.Error("Expected error for ai-generated verdict on a human delivery")
	}
	if _, err := NewHumanDelivery(id, 0, 0, "hello", 0.9, VerdictAccepted, nil); err == nil {
		t.Error("Expected error for attempt 0")
	}
}

func TestNewAIDelivery(t *testing.T) {
	d := NewAIDelivery(model.NewSessionID(), 1, "Is it?", true)

	if d.Verdict != VerdictAIGenerated {
		t.Errorf("Expected ai-generated verdict, got %s", d.Verdict)
	}
	if d.Score != nil {
		t.Error("AI delivery should have no score")
	}
	if !d.Fallback {
		t.Error("Expected fallback flag")
	}
	if d.FeedbackText() != "" {
		t.Error("AI delivery should have no feedback")
	}
}

func TestSession_PinScene(t *testing.T) {
	sc := testScene(t)

	s, _ := NewSession("user", "test")
	if s.Scene() != nil {
		t.Fatal("Expected no pinned scene on a new session")
	}
	if err := s.PinScene(sc); err != nil {
		t.Fatalf("PinScene failed: %v", err)
	}
	if s.Scene() != sc {
		t.Error("Expected the pinned scene to be returned")
	}

	other, _ := NewSession("user", "balcony")
	if err := other.PinScene(sc); err == nil {
		t.Error("Expected error pinning a scene with a different ID")
	}
	if err := other.PinScene(nil); err == nil {
		t.Error("Expected error pinning a nil scene")
	}
}
