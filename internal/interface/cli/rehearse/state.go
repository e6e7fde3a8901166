package rehearse

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/input"
)

// NewStateCommand creates the state command
func NewStateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state <session-id>",
		Short: "Show a session's state and the next line to deliver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCase(cmd, func(ctx context.Context, uc input.RehearsalUseCase) (string, interface{}, error) {
				out, err := uc.GetSessionState(ctx, args[0])
				return "", out, err
			})
		},
	}
}

// NewResumeCommand creates the resume command
func NewResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Speak partner lines left pending by an interrupted turn",
		Long: `Resume a session whose state shows next action "resume": the partner
lines an interrupted turn never spoke are generated now, and a session whose
every line is already recorded is completed. A session waiting for the actor
is shown unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCase(cmd, func(ctx context.Context, uc input.RehearsalUseCase) (string, interface{}, error) {
				out, err := uc.ResumeSession(ctx, args[0])
				return "Session resumed", out, err
			})
		},
	}
}

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show the delivery log of a session",
		Long:  "List every delivery of a session in order, including retries, scores and coaching notes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCase(cmd, func(ctx context.Context, uc input.RehearsalUseCase) (string, interface{}, error) {
				out, err := uc.ListDeliveries(ctx, args[0])
				return "", out, err
			})
		},
	}
}

// NewAbandonCommand creates the abandon command
func NewAbandonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <session-id>",
		Short: "Abandon a session",
		Long:  "Stop a session. An abandoned session accepts no further deliveries.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCase(cmd, func(ctx context.Context, uc input.RehearsalUseCase) (string, interface{}, error) {
				out, err := uc.AbandonSession(ctx, args[0])
				return "Session abandoned", out, err
			})
		},
	}
}
