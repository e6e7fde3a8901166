package common

import (
	"github.com/YoshitsuguKoike/rehearsal/internal/app/config"
)

// Output formats accepted by --format
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options holds the persistent flags shared by every command
type Options struct {
	Home     string // Directory holding setting.json, .env and the default data paths
	LogLevel string // Overrides stderr_level when set
	Format   string // "text" or "json"
}

var (
	// globalConfig holds the loaded configuration for all commands
	globalConfig config.Config

	globalOptions = Options{Home: ".rehearsal", Format: FormatText}
)

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(cfg config.Config) {
	globalConfig = cfg
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() config.Config {
	return globalConfig
}

// GlobalOptions returns the persistent flag values for binding and reading
func GlobalOptions() *Options {
	return &globalOptions
}
