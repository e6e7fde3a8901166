package doctor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/adapter/gateway/generation"
	"github.com/YoshitsuguKoike/rehearsal/internal/app/config"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/dto"
	"github.com/YoshitsuguKoike/rehearsal/internal/infrastructure/di"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/common"
)

const healthCheckTimeout = 15 * time.Second

// NewCommand creates the doctor command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment & configuration",
		Long: `Check that the session store opens, every scene in the scene store is
valid, and the configured generation backend answers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			report := Run(ctx, common.GetGlobalConfig(), func(ctx context.Context) (*di.Container, error) {
				return common.InitializeContainer(ctx)
			})
			if err := common.Present(cmd, "", report, nil); err != nil {
				return err
			}
			if report.Errors > 0 {
				cmd.SilenceUsage = true
				return fmt.Errorf("doctor found %d problem(s)", report.Errors)
			}
			return nil
		},
	}
}

// Run builds the container and checks each dependency in turn
func Run(ctx context.Context, cfg config.Config, newContainer func(context.Context) (*di.Container, error)) *dto.DoctorReport {
	report := &dto.DoctorReport{}
	if cfg == nil {
		addCheck(report, "configuration", "error", "configuration not loaded")
		return report
	}
	report.ConfigSource = cfg.ConfigSource()
	report.SettingPath = cfg.SettingPath()
	checkCredentials(report, cfg)

	container, err := newContainer(ctx)
	if err != nil {
		addCheck(report, "container", "error", err.Error())
		return report
	}
	defer container.Close()

	switch cfg.SessionStore() {
	case "memory":
		addCheck(report, "session store", "warn", "memory (sessions are lost on exit)")
	default:
		addCheck(report, "session store", "ok", "sqlite "+cfg.DBPath())
	}

	checkScenes(ctx, report, container)
	checkGenerator(ctx, report, container, cfg)

	return report
}

func checkScenes(ctx context.Context, report *dto.DoctorReport, container *di.Container) {
	repo := container.GetSceneRepository()
	checks, err := repo.ValidateAll(ctx)
	if err != nil {
		addCheck(report, "scene store", "error", err.Error())
		return
	}

	var valid int
	for _, c := range checks {
		if c.Err != nil {
			addCheck(report, "scene "+c.Name, "error", c.Err.Error())
			continue
		}
		valid++
	}
	if valid == 0 {
		addCheck(report, "scene store", "warn", fmt.Sprintf("no scenes in %s", repo.Location()))
		return
	}
	addCheck(report, "scene store", "ok", fmt.Sprintf("%d scene(s) in %s", valid, repo.Location()))
}

// credentialEnv names the variables each generator reads its API key from
var credentialEnv = map[string]string{
	generation.GeneratorOpenAI: "OPENAI_API_KEY",
	generation.GeneratorGemini: "GEMINI_API_KEY or GOOGLE_API_KEY",
}

func checkCredentials(report *dto.DoctorReport, cfg config.Config) {
	available := generation.GetAvailableGenerators()
	selected := cfg.Generator()
	if selected == "" {
		selected = generation.GeneratorScripted
	}
	usable := strings.Join(available, ", ")
	if slices.Contains(available, selected) {
		addCheck(report, "credentials", "ok", "usable generators: "+usable)
		return
	}
	detail := fmt.Sprintf("no API key for %s", selected)
	if env, ok := credentialEnv[selected]; ok {
		detail += " (set " + env + ")"
	}
	addCheck(report, "credentials", "warn", detail+"; usable generators: "+usable)
}

func checkGenerator(ctx context.Context, report *dto.DoctorReport, container *di.Container, cfg config.Config) {
	gateway := container.GetGenerationGateway()
	if gateway == nil {
		addCheck(report, "generator", "ok", "scripted (partner speaks the script)")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := gateway.HealthCheck(ctx); err != nil {
		addCheck(report, "generator", "error", fmt.Sprintf("%s: %v", gateway.Name(), err))
		return
	}
	detail := gateway.Name()
	if cfg.Model() != "" {
		detail += " (" + cfg.Model() + ")"
	}
	addCheck(report, "generator", "ok", detail)
}

func addCheck(report *dto.DoctorReport, name, status, detail string) {
	report.Checks = append(report.Checks, dto.DoctorCheckDTO{Name: name, Status: status, Detail: detail})
	if status == "error" {
		report.Errors++
	}
}
