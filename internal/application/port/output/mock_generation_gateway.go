package output

import (
	"context"
	"sync"
	"time"
)

// MockGenerationGateway is a mock implementation of GenerationGateway for testing
type MockGenerationGateway struct {
	GenerateFunc    func(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
	HealthCheckFunc func(ctx context.Context) error

	mu      sync.Mutex
	history []GenerationRequest
}

// NewMockGenerationGateway creates a mock that answers every request with text
func NewMockGenerationGateway(text string) *MockGenerationGateway {
	return &MockGenerationGateway{
		GenerateFunc: func(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
			return &GenerationResponse{Text: text, Model: "mock", Duration: time.Millisecond}, nil
		},
	}
}

// Generate records the request and delegates to GenerateFunc
func (m *MockGenerationGateway) Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	m.mu.Lock()
	m.history = append(m.history, req)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &GenerationResponse{Text: "", Model: "mock"}, nil
}

// Name returns the backend identifier
func (m *MockGenerationGateway) Name() string {
	return "mock"
}

// HealthCheck performs a health check
func (m *MockGenerationGateway) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}

// Calls returns the number of Generate calls
func (m *MockGenerationGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// History returns a copy of the recorded requests
func (m *MockGenerationGateway) History() []GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerationRequest, len(m.history))
	copy(out, m.history)
	return out
}
