package scenes

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/common"
)

// NewCommand creates the scenes command with its subcommands
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "Scene script management commands",
		Long:  "List, validate and upload the scene scripts available to rehearse",
		RunE: func(c *cobra.Command, _ []string) error {
			return c.Help()
		},
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newValidateCommand(afero.NewOsFs()))
	cmd.AddCommand(newPushCommand(afero.NewOsFs()))

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenes in the configured scene store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			container, err := common.InitializeContainer(ctx)
			if err != nil {
				return common.Present(cmd, "", nil, fmt.Errorf("failed to initialize container: %w", err))
			}
			defer container.Close()

			scenes, err := container.GetRehearsalUseCase().ListScenes(ctx)
			return common.Present(cmd, "", scenes, err)
		},
	}
}

// newValidateCommand validates local files when given, otherwise the whole scene store
func newValidateCommand(fsys afero.Fs) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate scene scripts without starting a session",
		Long: `Validate scene scripts.

With file arguments, each local YAML file is parsed and validated. Without
arguments, every document in the configured scene store is checked.

Examples:
  rehearsal scenes validate
  rehearsal scenes validate scenes/coffee_order.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report *dto.SceneCheckReport
			if len(args) > 0 {
				report = validateFiles(fsys, args)
			} else {
				ctx := commandContext(cmd)
				container, err := common.InitializeContainer(ctx)
				if err != nil {
					return common.Present(cmd, "", nil, fmt.Errorf("failed to initialize container: %w", err))
				}
				defer container.Close()

				repo := container.GetSceneRepository()
				checks, err := repo.ValidateAll(ctx)
				if err != nil {
					return common.Present(cmd, "", nil, err)
				}
				report = &dto.SceneCheckReport{Location: repo.Location()}
				for _, c := range checks {
					addCheck(report, c.Name, c.Scene, c.Err)
				}
			}

			if err := common.Present(cmd, "", report, nil); err != nil {
				return err
			}
			if report.Invalid > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d invalid scene document(s)", report.Invalid)
			}
			return nil
		},
	}
}
