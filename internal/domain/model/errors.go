package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies rehearsal failures so callers can render distinct outcomes
type ErrorKind string

const (
	// ErrorKindConfiguration is a malformed scene; fatal at session creation, never retried
	ErrorKindConfiguration ErrorKind = "configuration"
	// ErrorKindGeneration is an upstream model error or timeout
	ErrorKindGeneration ErrorKind = "generation"
	// ErrorKindPersistence is a gateway read or write failure; fatal to the request
	ErrorKindPersistence ErrorKind = "persistence"
	// ErrorKindStateConflict is a request the session's current state cannot accept
	ErrorKindStateConflict ErrorKind = "state_conflict"
	// ErrorKindNotFound is an unknown session or scene
	ErrorKindNotFound ErrorKind = "not_found"
)

// RehearsalError represents domain-specific errors for rehearsal sessions
type RehearsalError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *RehearsalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *RehearsalError) Unwrap() error {
	return e.Err
}

// Is matches another RehearsalError by code, so package-level values work with errors.Is
func (e *RehearsalError) Is(target error) bool {
	var other *RehearsalError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Common rehearsal errors
var (
	ErrSessionNotFound = &RehearsalError{
		Kind:    ErrorKindNotFound,
		Code:    "SESSION_NOT_FOUND",
		Message: "Rehearsal session not found",
	}

	ErrSceneNotFound = &RehearsalError{
		Kind:    ErrorKindNotFound,
		Code:    "SCENE_NOT_FOUND",
		Message: "Scene not found",
	}

	ErrSessionCompleted = &RehearsalError{
		Kind:    ErrorKindStateConflict,
		Code:    "SESSION_COMPLETED",
		Message: "Session already complete",
	}

	ErrSessionAbandoned = &RehearsalError{
		Kind:    ErrorKindStateConflict,
		Code:    "SESSION_ABANDONED",
		Message: "Session was abandoned",
	}

	ErrTurnInProgress = &RehearsalError{
		Kind:    ErrorKindStateConflict,
		Code:    "TURN_IN_PROGRESS",
		Message: "Another turn is being processed for this session",
	}

	ErrLineResolved = &RehearsalError{
		Kind:    ErrorKindStateConflict,
		Code:    "LINE_RESOLVED",
		Message: "Delivery submitted for a line that is not awaiting the actor",
	}
)

// NewConfigurationError creates a configuration error for a malformed scene
func NewConfigurationError(message string, err error) *RehearsalError {
	return &RehearsalError{Kind: ErrorKindConfiguration, Code: "INVALID_SCENE", Message: message, Err: err}
}

// NewGenerationError creates a generation failure
func NewGenerationError(message string, err error) *RehearsalError {
	return &RehearsalError{Kind: ErrorKindGeneration, Code: "GENERATION_FAILED", Message: message, Err: err}
}

// NewPersistenceError creates a persistence failure
func NewPersistenceError(message string, err error) *RehearsalError {
	return &RehearsalError{Kind: ErrorKindPersistence, Code: "PERSISTENCE_FAILED", Message: message, Err: err}
}

// NewStateConflictError creates a state conflict with a custom message
func NewStateConflictError(code, message string, err error) *RehearsalError {
	return &RehearsalError{Kind: ErrorKindStateConflict, Code: code, Message: message, Err: err}
}

// WithCause returns a copy of e wrapping err
func (e *RehearsalError) WithCause(err error) *RehearsalError {
	cp := *e
	cp.Err = err
	return &cp
}

// KindOf returns the kind of a rehearsal error, or "" for other errors
func KindOf(err error) ErrorKind {
	var re *RehearsalError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsConfigurationError checks if err is a configuration error
func IsConfigurationError(err error) bool {
	return KindOf(err) == ErrorKindConfiguration
}

// IsGenerationError checks if err is a generation failure
func IsGenerationError(err error) bool {
	return KindOf(err) == ErrorKindGeneration
}

// IsPersistenceFailure checks if err is a persistence failure
func IsPersistenceFailure(err error) bool {
	return KindOf(err) == ErrorKindPersistence
}

// IsStateConflict checks if err is a state conflict
func IsStateConflict(err error) bool {
	return KindOf(err) == ErrorKindStateConflict
}

// IsNotFound checks if err is a not-found error
func IsNotFound(err error) bool {
	return KindOf(err) == ErrorKindNotFound
}
