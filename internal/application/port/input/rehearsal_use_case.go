package input

import (
	"context"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
)

// RehearsalUseCase defines the caller-facing rehearsal operations.
// Every operation returns the session's suspended state; nothing blocks waiting for the actor.
type RehearsalUseCase interface {
	// StartSession creates a session and speaks any AI lines before the actor's first cue
	StartSession(ctx context.Context, in dto.StartSessionInput) (*dto.StartSessionOutput, error)

	// SubmitDelivery evaluates the actor's transcript for the current line
	SubmitDelivery(ctx context.Context, in dto.SubmitDeliveryInput) (*dto.SubmitDeliveryOutput, error)

	// ResumeSession speaks partner lines left pending by an interrupted turn.
	// It is a no-op for a session already awaiting the actor.
	ResumeSession(ctx context.Context, sessionID string) (*dto.ResumeSessionOutput, error)

	// GetSessionState returns the current state and next action marker
	GetSessionState(ctx context.Context, sessionID string) (*dto.SessionStateOutput, error)

	// AbandonSession stops a session; it accepts no further deliveries
	AbandonSession(ctx context.Context, sessionID string) (*dto.SessionStateOutput, error)

	// ListDeliveries returns the ordered delivery log
	ListDeliveries(ctx context.Context, sessionID string) (*dto.ListDeliveriesOutput, error)

	// ListScenes lists scenes available to rehearse
	ListScenes(ctx context.Context) ([]dto.SceneSummaryDTO, error)
}
