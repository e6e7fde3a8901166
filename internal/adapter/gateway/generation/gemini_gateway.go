package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig configures a Gemini API backend
type GeminiConfig struct {
	APIKey  string
	BaseURL string // Empty uses the public Gemini API endpoint
	Model   string
}

// GeminiGateway implements GenerationGateway over the Gemini generateContent API
type GeminiGateway struct {
	client *genai.Client
	model  string
}

// NewGeminiGateway creates a new Gemini gateway
func NewGeminiGateway(ctx context.Context, cfg GeminiConfig) (*GeminiGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set for gemini generator")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGateway{client: client, model: model}, nil
}

// Generate sends the conversation to generateContent
func (g *GeminiGateway) Generate(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
	start := time.Now()

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(req.System)}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, geminiContents(req.Messages), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, output.ErrEmptyGeneration
	}

	out := &output.GenerationResponse{
		Text:     text,
		Model:    g.model,
		Duration: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// Name returns the backend identifier
func (g *GeminiGateway) Name() string {
	return GeneratorGemini
}

// HealthCheck sends a minimal request
func (g *GeminiGateway) HealthCheck(ctx context.Context) error {
	_, err := g.Generate(ctx, output.GenerationRequest{
		Messages:  []output.GenerationMessage{{Role: output.RoleUser, Content: "ping"}},
		MaxTokens: 5,
	})
	return err
}

func geminiContents(msgs []output.GenerationMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == output.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}
