package output

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyGeneration is returned when a backend answers with no usable text
var ErrEmptyGeneration = errors.New("generation returned empty output")

// GenerationGateway is the interface for language model text generation.
// This abstraction allows different backends (OpenAI-compatible, Gemini, scripted).
type GenerationGateway interface {
	// Generate produces a completion for the given request
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)

	// Name returns the backend identifier (openai/gemini/scripted)
	Name() string

	// HealthCheck verifies if the backend is reachable and configured
	HealthCheck(ctx context.Context) error
}

// MessageRole identifies who authored a conversation message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// GenerationMessage is one turn of conversation sent to the model
type GenerationMessage struct {
	Role    MessageRole
	Content string
}

// GenerationRequest represents a request to a generation backend
type GenerationRequest struct {
	System      string              // System instruction (persona, rules)
	Messages    []GenerationMessage // Conversation, oldest first; the last message is the prompt
	MaxTokens   int                 // Maximum tokens to generate (0 = backend default)
	Temperature float64             // Sampling temperature (0.0 = deterministic as far as the backend allows)
	Timeout     time.Duration       // Per-call deadline (0 = caller's context only)
}

// GenerationResponse represents the response from a generation backend
type GenerationResponse struct {
	Text       string        // Generated text
	Model      string        // Model that produced the text
	Duration   time.Duration // Call duration
	TokensUsed int           // Total tokens (if reported)
}
