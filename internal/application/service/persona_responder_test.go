package service

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
)

func testConversation() session.ConversationState {
	return session.ConversationState{
		Persona:    scene.Character{Role: scene.SpeakerAI, Name: "Bob", Persona: "A grumpy shopkeeper"},
		Partner:    scene.Character{Role: scene.SpeakerHuman, Name: "Ann"},
		SceneTitle: "The Bakery",
		SceneBrief: "Early morning, the shop has just opened.",
		Window: []session.Exchange{
			{LineIndex: 0, Speaker: scene.SpeakerHuman, Character: "Ann", Text: "Good morning."},
		},
		CurrentLine: scene.Line{Index: 1, Speaker: scene.SpeakerAI, Text: "Is it?", Intent: "dry, not looking up"},
	}
}

func fastResponderConfig() PersonaResponderConfig {
	cfg := DefaultPersonaResponderConfig()
	cfg.Backoff = time.Millisecond
	cfg.Timeout = time.Second
	return cfg
}

func TestPersonaResponder_ScriptedMode(t *testing.T) {
	gw := output.NewMockGenerationGateway("should not be used")
	cfg := fastResponderConfig()
	cfg.Mode = ResponseModeScripted

	r := NewPersonaResponder(gw, nil, cfg, nil)
	res := r.Respond(context.Background(), testConversation())

	assert.Equal(t, "Is it?", res.Text)
	assert.False(t, res.Fallback)
	assert.Equal(t, 0, gw.Calls())
}

func TestPersonaResponder_Generated(t *testing.T) {
	gw := output.NewMockGenerationGateway(`Bob: "Is it, now?"`)
	r := NewPersonaResponder(gw, nil, fastResponderConfig(), nil)

	res := r.Respond(context.Background(), testConversation())

	assert.Equal(t, "Is it, now?", res.Text)
	assert.False(t, res.Fallback)
	assert.Equal(t, 1, res.Attempts)

	history := gw.History()
	require.Len(t, history, 1)
	assert.Contains(t, history[0].System, "You are Bob")
	assert.Contains(t, history[0].System, "A grumpy shopkeeper")
	require.Len(t, history[0].Messages, 1)
	assert.Contains(t, history[0].Messages[0].Content, "Ann: Good morning.")
	assert.Contains(t, history[0].Messages[0].Content, "Scripted line for Bob: Is it?")
	assert.Contains(t, history[0].Messages[0].Content, "Intent: dry, not looking up")
}

func TestPersonaResponder_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	gw := &output.MockGenerationGateway{
		GenerateFunc: func(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("503 upstream")
			}
			return &output.GenerationResponse{Text: "Is it really?"}, nil
		},
	}
	r := NewPersonaResponder(gw, nil, fastResponderConfig(), nil)

	res := r.Respond(context.Background(), testConversation())

	assert.Equal(t, "Is it really?", res.Text)
	assert.False(t, res.Fallback)
	assert.Equal(t, 2, res.Attempts)
}

func TestPersonaResponder_FallbackAfterRetries(t *testing.T) {
	gw := &output.MockGenerationGateway{
		GenerateFunc: func(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
			return nil, errors.New("rate limited")
		},
	}
	cfg := fastResponderConfig()
	cfg.Retries = 2
	r := NewPersonaResponder(gw, nil, cfg, nil)

	res := r.Respond(context.Background(), testConversation())

	assert.Equal(t, "Is it?", res.Text, "Fallback should use the scripted text")
	assert.True(t, res.Fallback)
	assert.True(t, res.IsUnavailable())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, gw.Calls())
}

func TestPersonaResponder_EmptyOutputIsFailure(t *testing.T) {
	gw := output.NewMockGenerationGateway(`  ""  `)
	cfg := fastResponderConfig()
	cfg.Retries = 1
	r := NewPersonaResponder(gw, nil, cfg, nil)

	res := r.Respond(context.Background(), testConversation())

	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, output.ErrEmptyGeneration)
	assert.Equal(t, 2, gw.Calls())
}

func TestPersonaResponder_PerAttemptTimeout(t *testing.T) {
	gw := &output.MockGenerationGateway{
		GenerateFunc: func(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	cfg := fastResponderConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.Retries = 0
	r := NewPersonaResponder(gw, nil, cfg, nil)

	start := time.Now()
	res := r.Respond(context.Background(), testConversation())

	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPersonaResponder_UsesLimiter(t *testing.T) {
	limiter, err := NewGenerationLimiter(1)
	require.NoError(t, err)

	gw := &output.MockGenerationGateway{
		GenerateFunc: func(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
			assert.Equal(t, 1, limiter.Stats().Current)
			return &output.GenerationResponse{Text: "Hm."}, nil
		},
	}
	r := NewPersonaResponder(gw, limiter, fastResponderConfig(), nil)

	res := r.Respond(context.Background(), testConversation())
	assert.Equal(t, "Hm.", res.Text)
	assert.Equal(t, 0, limiter.Stats().Current)
}

func TestPersonaResponder_FallbackLogsSlotUsage(t *testing.T) {
	limiter, err := NewGenerationLimiter(3)
	require.NoError(t, err)
	gw := &output.MockGenerationGateway{
		GenerateFunc: func(ctx context.Context, req output.GenerationRequest) (*output.GenerationResponse, error) {
			return nil, errors.New("overloaded")
		},
	}
	cfg := fastResponderConfig()
	cfg.Retries = 0
	var logs bytes.Buffer
	r := NewPersonaResponder(gw, limiter, cfg, app.NewWriterLogger(&logs, app.LevelWarn))

	res := r.Respond(context.Background(), testConversation())

	assert.True(t, res.Fallback)
	assert.Contains(t, logs.String(), "AI partner unavailable for line 1 after 1 attempts (0/3 generation slots busy)")
}

func TestCleanPersonaOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Is it?  ", "Is it?"},
		{"Bob: Is it?", "Is it?"},
		{"BOB: Is it?", "Is it?"},
		{`"Is it?"`, "Is it?"},
		{"“Is it?”", "Is it?"},
		{"Alice: Is it?", "Alice: Is it?"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanPersonaOutput(tt.in, "Bob"), "input %q", tt.in)
	}
}
