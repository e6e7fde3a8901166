package rehearse

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/input"
)

// submitFlags holds the flags for the submit command
type submitFlags struct {
	line     int  // Line the caller believes is current (-1 = not checked)
	useStdin bool // Read the transcript from stdin
}

// NewSubmitCommand creates the submit command
func NewSubmitCommand() *cobra.Command {
	flags := &submitFlags{}

	cmd := &cobra.Command{
		Use:   "submit <session-id> [transcript...]",
		Short: "Submit a delivery of the current line",
		Long: `Submit the transcript of your spoken attempt at the current line.

The delivery is scored against the script. An accepted line advances the
scene and the partner replies; a low score asks for a retry until the
retry budget runs out.

Examples:
  rehearsal submit 5f0c... "Not today, Rita. I think I need something stronger."
  echo "You always know exactly what to say." | rehearsal submit 5f0c... --stdin
  rehearsal submit 5f0c... --line 3 "You always know exactly what to say."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readTranscript(cmd.InOrStdin(), args[1:], flags.useStdin)
			if err != nil {
				return err
			}

			in := dto.SubmitDeliveryInput{SessionID: args[0], Transcript: transcript}
			if flags.line > 0 {
				idx := flags.line - 1
				in.LineIndex = &idx
			}

			return withUseCase(cmd, func(ctx context.Context, uc input.RehearsalUseCase) (string, interface{}, error) {
				out, err := uc.SubmitDelivery(ctx, in)
				return "", out, err
			})
		},
	}

	cmd.Flags().IntVarP(&flags.line, "line", "l", 0, "Line number (1-based) you are delivering; rejected if already resolved")
	cmd.Flags().BoolVar(&flags.useStdin, "stdin", false, "Read the transcript from stdin")

	return cmd
}

func readTranscript(r io.Reader, args []string, useStdin bool) (string, error) {
	if useStdin {
		if len(args) > 0 {
			return "", fmt.Errorf("--stdin cannot be combined with a transcript argument")
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read transcript: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	// An empty transcript is still submitted; the engine asks for a retry
	return strings.Join(args, " "), nil
}
