package model

import (
	"errors"
	"sort"
	"testing"
)

// ==================== SessionID Tests ====================

func TestNewSessionID(t *testing.T) {
	id1 := NewSessionID()
	id2 := NewSessionID()

	if id1.IsZero() {
		t.Error("SessionID should not be empty")
	}

	if id1.Equals(id2) {
		t.Error("Different SessionIDs should have different values")
	}

	// UUID format check (basic)
	if len(id1.String()) != 36 {
		t.Errorf("SessionID should be 36 characters (UUID format), got %d", len(id1.String()))
	}
}

func TestNewSessionIDFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid ID", "session-123", false},
		{"Empty ID", "", true},
		{"UUID format", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewSessionIDFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSessionIDFromString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && id.String() != tt.input {
				t.Errorf("Expected ID %s, got %s", tt.input, id.String())
			}
		})
	}
}

// ==================== DeliveryID Tests ====================

func TestNewDeliveryID_Monotonic(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewDeliveryID().String()
	}

	if len(ids[0]) != 26 {
		t.Errorf("DeliveryID should be 26 characters (ULID format), got %d", len(ids[0]))
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("DeliveryIDs generated in sequence should sort in creation order")
	}
}

func TestNewDeliveryIDFromString(t *testing.T) {
	valid := NewDeliveryID().String()

	if _, err := NewDeliveryIDFromString(valid); err != nil {
		t.Errorf("Expected valid ULID to parse, got %v", err)
	}
	if _, err := NewDeliveryIDFromString(""); err == nil {
		t.Error("Expected error for empty delivery ID")
	}
	if _, err := NewDeliveryIDFromString("not-a-ulid"); err == nil {
		t.Error("Expected error for malformed delivery ID")
	}
}

// ==================== SessionStatus Tests ====================

func TestSessionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from SessionStatus
		to   SessionStatus
		want bool
	}{
		{SessionStatusActive, SessionStatusCompleted, true},
		{SessionStatusActive, SessionStatusAbandoned, true},
		{SessionStatusCompleted, SessionStatusActive, false},
		{SessionStatusCompleted, SessionStatusAbandoned, false},
		{SessionStatusAbandoned, SessionStatusActive, false},
		{SessionStatusAbandoned, SessionStatusCompleted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	if SessionStatusActive.IsTerminal() {
		t.Error("active should not be terminal")
	}
	if !SessionStatusCompleted.IsTerminal() || !SessionStatusAbandoned.IsTerminal() {
		t.Error("completed and abandoned should be terminal")
	}
}

func TestParseSessionStatus(t *testing.T) {
	status, err := ParseSessionStatus("completed")
	if err != nil || status != SessionStatusCompleted {
		t.Errorf("Expected completed, got %v (%v)", status, err)
	}
	if _, err := ParseSessionStatus("paused"); err == nil {
		t.Error("Expected error for unknown status")
	}
}

// ==================== RehearsalError Tests ====================

func TestRehearsalError_Is(t *testing.T) {
	wrapped := ErrTurnInProgress.WithCause(errors.New("lock held"))

	if !errors.Is(wrapped, ErrTurnInProgress) {
		t.Error("WithCause copy should match the original by code")
	}
	if errors.Is(wrapped, ErrSessionCompleted) {
		t.Error("Different codes should not match")
	}
	if !IsStateConflict(wrapped) {
		t.Error("Expected state conflict kind")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"Configuration", NewConfigurationError("bad scene", nil), ErrorKindConfiguration},
		{"Generation", NewGenerationError("timeout", errors.New("deadline")), ErrorKindGeneration},
		{"Persistence", NewPersistenceError("write failed", nil), ErrorKindPersistence},
		{"Not found", ErrSessionNotFound, ErrorKindNotFound},
		{"Plain error", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRehearsalError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("append failed", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected cause to be reachable through Unwrap")
	}
	if !IsPersistenceFailure(err) {
		t.Error("Expected persistence failure")
	}
}
