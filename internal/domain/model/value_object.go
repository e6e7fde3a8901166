package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID represents a unique identifier for a rehearsal session
type SessionID struct {
	value string
}

// NewSessionID creates a new random SessionID
func NewSessionID() SessionID {
	return SessionID{value: uuid.New().String()}
}

// NewSessionIDFromString creates a SessionID from an existing string
func NewSessionIDFromString(id string) (SessionID, error) {
	if id == "" {
		return SessionID{}, errors.New("session ID cannot be empty")
	}
	return SessionID{value: id}, nil
}

// String returns the string representation
func (s SessionID) String() string {
	return s.value
}

// Equals checks if two SessionIDs are equal
func (s SessionID) Equals(other SessionID) bool {
	return s.value == other.value
}

// IsZero reports whether the ID is unset
func (s SessionID) IsZero() bool {
	return s.value == ""
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// DeliveryID identifies a single delivery record.
// ULIDs sort lexically in creation order, which keeps the log ordered by ID.
type DeliveryID struct {
	value string
}

// NewDeliveryID generates a new ULID-based DeliveryID
func NewDeliveryID() DeliveryID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return DeliveryID{value: id.String()}
}

// NewDeliveryIDFromString creates a DeliveryID from a stored value
func NewDeliveryIDFromString(id string) (DeliveryID, error) {
	if id == "" {
		return DeliveryID{}, errors.New("delivery ID cannot be empty")
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return DeliveryID{}, fmt.Errorf("invalid delivery ID %q: %w", id, err)
	}
	return DeliveryID{value: id}, nil
}

// String returns the string representation
func (d DeliveryID) String() string {
	return d.value
}

// SessionStatus represents the lifecycle status of a rehearsal session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// String returns the string representation
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid validates the status
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusAbandoned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the session admits no further deliveries
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

// CanTransitionTo checks if a status transition is valid
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	validTransitions := map[SessionStatus][]SessionStatus{
		SessionStatusActive:    {SessionStatusCompleted, SessionStatusAbandoned},
		SessionStatusCompleted: {},
		SessionStatusAbandoned: {},
	}

	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, allowedStatus := range allowed {
		if allowedStatus == next {
			return true
		}
	}
	return false
}

// ParseSessionStatus converts a stored string into a SessionStatus
func ParseSessionStatus(value string) (SessionStatus, error) {
	status := SessionStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown session status: %q", value)
	}
	return status, nil
}
