package initcmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/rehearsal/internal/embed"
	"github.com/YoshitsuguKoike/rehearsal/internal/infra/config"
	"github.com/YoshitsuguKoike/rehearsal/internal/interface/cli/common"
)

const gitignoreMarker = "# >>> rehearsal"

// NewCommand creates the init command
func NewCommand() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a rehearsal home with settings and a sample scene",
		Long: `Initialize a rehearsal home directory (--home, default .rehearsal).

Writes a default setting.json and a sample scene under scenes/, and adds
the session database and .env to .gitignore.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return Run(afero.NewOsFs(), c.OutOrStdout(), dir, common.GlobalOptions().Home, force)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Target directory")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")

	return cmd
}

// Run writes the home layout under dir/home
func Run(fsys afero.Fs, out io.Writer, dir, home string, force bool) error {
	if dir == "" {
		dir = "."
	}
	if home == "" {
		home = ".rehearsal"
	}
	homeDir := home
	if !filepath.IsAbs(home) {
		homeDir = filepath.Join(dir, home)
	}

	templates, err := embed.GetTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	templates = append(templates, embed.Template{
		Path:    "setting.json",
		Content: config.CreateDefaultSettings(homeDir),
		Mode:    0644,
	})

	for _, tmpl := range templates {
		result, err := embed.WriteTemplate(fsys, homeDir, tmpl, force)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", tmpl.Path, err)
		}
		if result.Action == "SKIP" {
			fmt.Fprintf(out, "SKIP: %s (exists; use --force to overwrite)\n", filepath.Join(homeDir, result.Path))
		} else {
			fmt.Fprintf(out, "%s: %s\n", result.Action, filepath.Join(homeDir, result.Path))
		}
	}

	if !filepath.IsAbs(home) {
		if err := updateGitignore(fsys, out, dir, home); err != nil {
			fmt.Fprintf(out, "Warning: Could not update .gitignore: %v\n", err)
		}
	}

	fmt.Fprintf(out, "\nInitialized rehearsal home in %s\n", homeDir)
	fmt.Fprintln(out, "Try: rehearsal run coffee-order")
	return nil
}

// updateGitignore adds the rehearsal block to .gitignore once
func updateGitignore(fsys afero.Fs, out io.Writer, rootDir, home string) error {
	gitignorePath := filepath.Join(rootDir, ".gitignore")

	home = "/" + strings.Trim(filepath.ToSlash(home), "/")
	block := strings.Join([]string{
		gitignoreMarker,
		home + "/rehearsal.db*",
		home + "/.env",
		"# <<< rehearsal",
	}, "\n")

	var existing []byte
	if ok, _ := afero.Exists(fsys, gitignorePath); ok {
		var err error
		existing, err = afero.ReadFile(fsys, gitignorePath)
		if err != nil {
			return fmt.Errorf("failed to read .gitignore: %w", err)
		}
	}

	content := string(existing)
	if strings.Contains(content, gitignoreMarker) {
		fmt.Fprintln(out, "SKIP: .gitignore rehearsal block already present")
		return nil
	}

	var b strings.Builder
	b.WriteString(content)
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	if len(content) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(block)
	b.WriteString("\n")

	if _, err := embed.WriteTemplate(fsys, rootDir, embed.Template{Path: ".gitignore", Content: []byte(b.String()), Mode: 0644}, true); err != nil {
		return err
	}
	fmt.Fprintln(out, "APPENDED: .gitignore rehearsal block")
	return nil
}
