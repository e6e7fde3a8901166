package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/YoshitsuguKoike/rehearsal/internal/app/config"
)

// RawSettings represents the structure of setting.json file.
// JSON tags are used for marshaling/unmarshaling.
type RawSettings struct {
	// Storage
	Home         *string `json:"home"`
	SessionStore *string `json:"session_store"`
	DBPath       *string `json:"db_path"`

	// Scene source
	SceneSource *string `json:"scene_source"`
	SceneDir    *string `json:"scene_dir"`
	S3Bucket    *string `json:"s3_bucket"`
	S3Prefix    *string `json:"s3_prefix"`
	S3Region    *string `json:"s3_region"`

	// Generation
	Generator                *string `json:"generator"`
	Model                    *string `json:"model"`
	BaseURL                  *string `json:"base_url"`
	ResponseMode             *string `json:"response_mode"`
	GenerationTimeoutSec     *int    `json:"generation_timeout_sec"`
	GenerationRetries        *int    `json:"generation_retries"`
	MaxConcurrentGenerations *int    `json:"max_concurrent_generations"`

	// Rehearsal defaults
	AcceptanceThreshold *float64 `json:"acceptance_threshold"`
	MaxRetries          *int     `json:"max_retries"`
	HistoryWindow       *int     `json:"history_window"`
	OrderTolerance      *float64 `json:"order_tolerance"`
	LockMode            *string  `json:"lock_mode"`

	// Logging
	StderrLevel *string `json:"stderr_level"`
}

// LoadSettings loads configuration from setting.json in baseDir.
// Priority: setting.json > defaults. Home defaults to baseDir. A .env file in baseDir is loaded into the
// process environment for API keys and AWS credentials; variables that are
// already set win over the file.
func LoadSettings(baseDir string) (*config.AppConfig, error) {
	if err := loadDotEnv(filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}

	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	jsonPath := filepath.Join(baseDir, "setting.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
	}

	if settings.Home == nil {
		settings.Home = &baseDir
	}
	applyDefaults(settings)

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return buildAppConfig(settings, configSource, settingPath), nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(settings *RawSettings) {
	setString := func(p **string, v string) {
		if *p == nil {
			*p = &v
		}
	}
	setInt := func(p **int, v int) {
		if *p == nil {
			*p = &v
		}
	}
	setFloat := func(p **float64, v float64) {
		if *p == nil {
			*p = &v
		}
	}

	// Storage defaults; paths hang off home unless set explicitly
	setString(&settings.Home, ".rehearsal")
	setString(&settings.SessionStore, "sqlite")
	setString(&settings.DBPath, filepath.Join(*settings.Home, "rehearsal.db"))

	setString(&settings.SceneSource, "file")
	setString(&settings.SceneDir, filepath.Join(*settings.Home, "scenes"))
	setString(&settings.S3Bucket, "")
	setString(&settings.S3Prefix, "scenes/")
	setString(&settings.S3Region, "")

	setString(&settings.Generator, "scripted")
	setString(&settings.Model, "")
	setString(&settings.BaseURL, "")
	setString(&settings.ResponseMode, "generated")
	setInt(&settings.GenerationTimeoutSec, 30)
	setInt(&settings.GenerationRetries, 2)
	setInt(&settings.MaxConcurrentGenerations, 4)

	setFloat(&settings.AcceptanceThreshold, 0.8)
	setInt(&settings.MaxRetries, 2)
	setInt(&settings.HistoryWindow, 6)
	setFloat(&settings.OrderTolerance, 0.5)
	setString(&settings.LockMode, "reject")

	setString(&settings.StderrLevel, "warn") // Default to WARN level
}

// validateSettings rejects values no component can run with
func validateSettings(s *RawSettings) error {
	var errs []error
	oneOf := func(name, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s must be one of %s, got %q", name, strings.Join(allowed, "|"), value))
	}

	oneOf("session_store", *s.SessionStore, "sqlite", "memory")
	oneOf("scene_source", *s.SceneSource, "file", "s3")
	oneOf("generator", *s.Generator, "openai", "gemini", "scripted")
	oneOf("response_mode", *s.ResponseMode, "generated", "scripted")
	oneOf("lock_mode", *s.LockMode, "reject", "queue")
	oneOf("stderr_level", strings.ToLower(*s.StderrLevel), "debug", "info", "warn", "error", "off")

	if *s.SceneSource == "s3" && *s.S3Bucket == "" {
		errs = append(errs, errors.New("s3_bucket is required when scene_source is s3"))
	}
	if t := *s.AcceptanceThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("acceptance_threshold must be in (0, 1], got %v", t))
	}
	if t := *s.OrderTolerance; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("order_tolerance must be in [0, 1], got %v", t))
	}
	if *s.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 0, got %d", *s.MaxRetries))
	}
	if *s.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("history_window must be >= 0, got %d", *s.HistoryWindow))
	}
	if *s.GenerationTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("generation_timeout_sec must be > 0, got %d", *s.GenerationTimeoutSec))
	}
	if *s.GenerationRetries < 0 {
		errs = append(errs, fmt.Errorf("generation_retries must be >= 0, got %d", *s.GenerationRetries))
	}
	if *s.MaxConcurrentGenerations <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_generations must be > 0, got %d", *s.MaxConcurrentGenerations))
	}

	return errors.Join(errs...)
}

// buildAppConfig converts RawSettings to AppConfig
func buildAppConfig(s *RawSettings, configSource, settingPath string) *config.AppConfig {
	return config.NewAppConfig(config.Values{
		Home:                     *s.Home,
		SessionStore:             *s.SessionStore,
		DBPath:                   *s.DBPath,
		SceneSource:              *s.SceneSource,
		SceneDir:                 *s.SceneDir,
		S3Bucket:                 *s.S3Bucket,
		S3Prefix:                 *s.S3Prefix,
		S3Region:                 *s.S3Region,
		Generator:                *s.Generator,
		Model:                    *s.Model,
		BaseURL:                  *s.BaseURL,
		ResponseMode:             *s.ResponseMode,
		GenerationTimeoutSec:     *s.GenerationTimeoutSec,
		GenerationRetries:        *s.GenerationRetries,
		MaxConcurrentGenerations: *s.MaxConcurrentGenerations,
		AcceptanceThreshold:      *s.AcceptanceThreshold,
		MaxRetries:               *s.MaxRetries,
		HistoryWindow:            *s.HistoryWindow,
		OrderTolerance:           *s.OrderTolerance,
		LockMode:                 *s.LockMode,
		StderrLevel:              strings.ToLower(*s.StderrLevel),
		ConfigSource:             configSource,
		SettingPath:              settingPath,
	})
}

// CreateDefaultSettings creates a default setting.json content rooted at home
func CreateDefaultSettings(home string) []byte {
	settings := &RawSettings{}
	if home != "" {
		settings.Home = &home
	}
	applyDefaults(settings)

	data, _ := json.MarshalIndent(settings, "", "  ")
	return data
}
