package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	infraConfig "github.com/YoshitsuguKoike/rehearsal/internal/infra/config"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/common"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/doctor"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/initcmd"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/rehearse"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/scenes"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/version"
)

// NewRoot creates the rehearsal root command
func NewRoot() *cobra.Command {
	opts := common.GlobalOptions()
	if home := os.Getenv("REHEARSAL_HOME"); home != "" {
		opts.Home = home
	}

	cmd := &cobra.Command{
		Use:   "rehearsal",
		Short: "Rehearse two-character scenes against an AI scene partner",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != common.FormatText && opts.Format != common.FormatJSON {
				return fmt.Errorf("--format must be %s or %s, got %q", common.FormatText, common.FormatJSON, opts.Format)
			}

			// Load configuration before any command runs
			// Priority: setting.json > defaults
			cfg, err := infraConfig.LoadSettings(opts.Home)
			if err != nil {
				return fmt.Errorf("failed to load settings from %s: %w", opts.Home, err)
			}
			common.SetGlobalConfig(cfg)

			level := cfg.StderrLevel()
			if opts.LogLevel != "" {
				level = opts.LogLevel
			}
			logger := common.InitGlobalLogger(level, cmd.ErrOrStderr())
			logger.Debug("config loaded from %s (%s)", opts.Home, cfg.ConfigSource())
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	cmd.PersistentFlags().StringVar(&opts.Home, "home", opts.Home, "Rehearsal home holding setting.json and .env (env REHEARSAL_HOME)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Override stderr_level: debug, info, warn, error, off")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", common.FormatText, "Output format: text or json")

	cmd.AddCommand(initcmd.NewCommand())
	cmd.AddCommand(rehearse.NewCommands()...)
	cmd.AddCommand(scenes.NewCommand())
	cmd.AddCommand(doctor.NewCommand())
	cmd.AddCommand(version.NewCommand())
	return cmd
}
