package scenes

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/common"
)

// newPushCommand uploads local scene files into the configured scene store
func newPushCommand(fsys afero.Fs) *cobra.Command {
	return &cobra.Command{
		Use:   "push <file>...",
		Short: "Validate scene files and store them in the scene store",
		Long: `Validate local scene files and write them to the configured scene store
(the scene directory or the S3 bucket) as <scene-id>.yaml.

Invalid files are reported and skipped.

Examples:
  rehearsal scenes push coffee_order.yaml
  rehearsal --home prod scenes push scenes/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			container, err := common.InitializeContainer(ctx)
			if err != nil {
				return common.Present(cmd, "", nil, fmt.Errorf("failed to initialize container: %w", err))
			}
			defer container.Close()

			repo := container.GetSceneRepository()
			report := &dto.SceneCheckReport{Location: repo.Location()}
			for _, p := range args {
				data, err := afero.ReadFile(fsys, p)
				if err != nil {
					addCheck(report, p, nil, err)
					continue
				}
				sc, err := repo.SaveScene(ctx, data)
				addCheck(report, p, sc, err)
			}

			if err := common.Present(cmd, "", report, nil); err != nil {
				return err
			}
			if report.Invalid > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("%d scene file(s) not pushed", report.Invalid)
			}
			return nil
		},
	}
}
