package rehearse

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/input"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/session"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/common"
)

const abandonInput = ":abandon"

// runFlags holds the flags for the run command
type runFlags struct {
	userID    string
	sessionID string // Resume this session instead of starting a new one
}

// NewRunCommand creates the interactive run command
func NewRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [scene-id]",
		Short: "Rehearse a scene interactively",
		Long: `Rehearse a scene line by line, reading each delivery from stdin.

Each input line is submitted as the transcript of the current cue. End of
input pauses the session so it can be resumed later with --session, which
first speaks any partner lines an interrupted turn left pending. Type
:abandon to stop the session for good.

Examples:
  rehearsal run coffee-order
  rehearsal run --session 5f0c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (flags.sessionID == "") {
				return fmt.Errorf("specify either a scene ID or --session")
			}
			sceneID := ""
			if len(args) == 1 {
				sceneID = args[0]
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			container, err := common.InitializeContainer(ctx)
			if err != nil {
				return common.Present(cmd, "", nil, fmt.Errorf("failed to initialize container: %w", err))
			}
			defer container.Close()

			return runInteractive(ctx, cmd, container.GetRehearsalUseCase(), sceneID, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.userID, "user", "u", defaultUserID(), "Actor's user ID")
	cmd.Flags().StringVarP(&flags.sessionID, "session", "s", "", "Resume an existing session")

	return cmd
}

func runInteractive(ctx context.Context, cmd *cobra.Command, uc input.RehearsalUseCase, sceneID string, flags *runFlags) error {
	p := common.NewPresenter(cmd.OutOrStdout())
	out := cmd.OutOrStdout()

	var state dto.SessionStateOutput
	if flags.sessionID != "" {
		resumed, err := uc.ResumeSession(ctx, flags.sessionID)
		if err != nil {
			return common.Present(cmd, "", nil, err)
		}
		state = resumed.State
		p.PresentSuccess("Session resumed", resumed)
	} else {
		started, err := uc.StartSession(ctx, dto.StartSessionInput{UserID: flags.userID, SceneID: sceneID})
		if err != nil {
			return common.Present(cmd, "", nil, err)
		}
		state = started.State
		p.PresentSuccess("Session started", started)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for state.NextAction == string(session.NextActionSubmitDelivery) {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read delivery: %w", err)
			}
			fmt.Fprintf(out, "\nSession paused. Resume with: rehearsal run --session %s\n", state.SessionID)
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == abandonInput {
			abandoned, err := uc.AbandonSession(ctx, state.SessionID)
			return common.Present(cmd, "Session abandoned", abandoned, err)
		}

		idx := state.CurrentLineIndex
		submitted, err := uc.SubmitDelivery(ctx, dto.SubmitDeliveryInput{
			SessionID:  state.SessionID,
			Transcript: line,
			LineIndex:  &idx,
		})
		if err != nil {
			return common.Present(cmd, "", nil, err)
		}
		fmt.Fprintln(out)
		p.PresentSuccess("", submitted)
		state = submitted.State
	}

	return nil
}
