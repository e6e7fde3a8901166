package rehearse

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/input"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/common"
)

// NewCommands creates the session commands registered on the root command
func NewCommands() []*cobra.Command {
	return []*cobra.Command{
		NewStartCommand(),
		NewSubmitCommand(),
		NewStateCommand(),
		NewResumeCommand(),
		NewHistoryCommand(),
		NewAbandonCommand(),
		NewRunCommand(),
	}
}

// useCaseFunc runs one rehearsal operation and returns what to present
type useCaseFunc func(ctx context.Context, uc input.RehearsalUseCase) (message string, data interface{}, err error)

// withUseCase opens the container, runs fn and presents its result
func withUseCase(cmd *cobra.Command, fn useCaseFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	container, err := common.InitializeContainer(ctx)
	if err != nil {
		return common.Present(cmd, "", nil, fmt.Errorf("failed to initialize container: %w", err))
	}
	defer container.Close()

	message, data, err := fn(ctx, container.GetRehearsalUseCase())
	return common.Present(cmd, message, data, err)
}

// defaultUserID names the actor when --user is not given
func defaultUserID() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "actor"
}
