package generation

import (
	"context"
	"fmt"
	"os"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

// Supported generator types
const (
	GeneratorOpenAI   = "openai"
	GeneratorGemini   = "gemini"
	GeneratorScripted = "scripted"
)

// Config selects and configures a generation backend
type Config struct {
	Generator string
	Model     string
	BaseURL   string
}

// NewGenerationGateway creates a generation gateway based on generator type
// Supported types: openai, gemini, scripted
// API keys are read from OPENAI_API_KEY and GEMINI_API_KEY.
// The scripted generator needs no backend and returns a nil gateway; the
// persona responder then speaks scripted lines and coaching stays deterministic.
func NewGenerationGateway(ctx context.Context, cfg Config) (output.GenerationGateway, error) {
	switch cfg.Generator {
	case GeneratorOpenAI:
		gw, err := NewOpenAIGateway(OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil

	case GeneratorGemini:
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		gw, err := NewGeminiGateway(ctx, GeminiConfig{
			APIKey:  apiKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil

	case GeneratorScripted, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown generator: %s (supported: openai, gemini, scripted)", cfg.Generator)
	}
}

// GetAvailableGenerators returns generator types whose credentials are present
func GetAvailableGenerators() []string {
	generators := []string{}

	if os.Getenv("OPENAI_API_KEY") != "" {
		generators = append(generators, GeneratorOpenAI)
	}
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		generators = append(generators, GeneratorGemini)
	}

	// Scripted needs no credentials
	generators = append(generators, GeneratorScripted)

	return generators
}
