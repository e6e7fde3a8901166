package rehearse

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/input"
)

// NewStartCommand creates the start command
func NewStartCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "start <scene-id>",
		Short: "Start a rehearsal session for a scene",
		Long: `Start a new rehearsal session.

Any partner lines before your first cue are spoken immediately. The output
shows the line you have to deliver next.

Examples:
  rehearsal start coffee-order
  rehearsal start coffee-order --user sam --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUseCase(cmd, func(ctx context.Context, uc input.RehearsalUseCase) (string, interface{}, error) {
				out, err := uc.StartSession(ctx, dto.StartSessionInput{UserID: userID, SceneID: args[0]})
				return "Session started", out, err
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", defaultUserID(), "Actor's user ID")

	return cmd
}
