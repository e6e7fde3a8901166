package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAI-compatible chat completions backend
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Empty uses the OpenAI endpoint
	Model   string
}

// OpenAIGateway implements GenerationGateway over the chat completions API.
// Retries are left to the application layer, so the client never retries on its own.
type OpenAIGateway struct {
	client openai.Client
	model  string
}

// NewOpenAIGateway creates a new OpenAI-compatible gateway
func NewOpenAIGateway(cfg OpenAIConfig) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set for openai generator")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGateway{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Generate sends the conversation as a single chat completion
func (g *OpenAIGateway) Generate(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: openAIMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	params.Temperature = param.NewOpt(req.Temperature)

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, output.ErrEmptyGeneration
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, output.ErrEmptyGeneration
	}

	return &output.GenerationResponse{
		Text:       text,
		Model:      resp.Model,
		Duration:   time.Since(start),
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// Name returns the backend identifier
func (g *OpenAIGateway) Name() string {
	return GeneratorOpenAI
}

// HealthCheck sends a minimal completion
func (g *OpenAIGateway) HealthCheck(ctx context.Context) error {
	_, err := g.Generate(ctx, output.GenerationRequest{
		Messages:  []output.GenerationMessage{{Role: output.RoleUser, Content: "ping"}},
		MaxTokens: 5,
	})
	return err
}

func openAIMessages(req output.GenerationRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case output.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}
