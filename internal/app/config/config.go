package config

import "time"

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (setting.json, .env, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Storage
	Home() string         // Base directory for rehearsal data
	SessionStore() string // Session store backend: "sqlite" or "memory"
	DBPath() string       // SQLite database path

	// Scene source
	SceneSource() string // Scene source: "file" or "s3"
	SceneDir() string    // Directory holding scene YAML files
	S3Bucket() string
	S3Prefix() string
	S3Region() string

	// Generation
	Generator() string                // Generation backend: "openai", "gemini" or "scripted"
	Model() string                    // Model name passed to the backend
	BaseURL() string                  // Endpoint override for OpenAI-compatible or Gemini backends
	ResponseMode() string             // Partner line mode: "generated" or "scripted"
	GenerationTimeoutSec() int        // Per-call deadline in seconds
	GenerationTimeout() time.Duration // Per-call deadline as Duration
	GenerationRetries() int           // Attempts after the first one
	MaxConcurrentGenerations() int    // Global bound on in-flight generation calls

	// Rehearsal defaults (scenes may override the first three)
	AcceptanceThreshold() float64
	MaxRetries() int
	HistoryWindow() int
	OrderTolerance() float64
	LockMode() string // Concurrent submissions: "reject" or "queue"

	// Logging
	StderrLevel() string

	// Metadata
	ConfigSource() string // Source of configuration: "json" or "default"
	SettingPath() string  // Path to setting.json if loaded from file
}

// Values carries every setting needed to build an AppConfig
type Values struct {
	Home         string
	SessionStore string
	DBPath       string

	SceneSource string
	SceneDir    string
	S3Bucket    string
	S3Prefix    string
	S3Region    string

	Generator                string
	Model                    string
	BaseURL                  string
	ResponseMode             string
	GenerationTimeoutSec     int
	GenerationRetries        int
	MaxConcurrentGenerations int

	AcceptanceThreshold float64
	MaxRetries          int
	HistoryWindow       int
	OrderTolerance      float64
	LockMode            string

	StderrLevel string

	ConfigSource string
	SettingPath  string
}

// AppConfig is the concrete implementation of Config interface
type AppConfig struct {
	v Values
}

// NewAppConfig creates a new AppConfig
func NewAppConfig(v Values) *AppConfig {
	return &AppConfig{v: v}
}

func (c *AppConfig) Home() string         { return c.v.Home }
func (c *AppConfig) SessionStore() string { return c.v.SessionStore }
func (c *AppConfig) DBPath() string       { return c.v.DBPath }

func (c *AppConfig) SceneSource() string { return c.v.SceneSource }
func (c *AppConfig) SceneDir() string    { return c.v.SceneDir }
func (c *AppConfig) S3Bucket() string    { return c.v.S3Bucket }
func (c *AppConfig) S3Prefix() string    { return c.v.S3Prefix }
func (c *AppConfig) S3Region() string    { return c.v.S3Region }

func (c *AppConfig) Generator() string    { return c.v.Generator }
func (c *AppConfig) Model() string        { return c.v.Model }
func (c *AppConfig) BaseURL() string      { return c.v.BaseURL }
func (c *AppConfig) ResponseMode() string { return c.v.ResponseMode }

// GenerationTimeoutSec returns the per-call deadline in seconds
func (c *AppConfig) GenerationTimeoutSec() int { return c.v.GenerationTimeoutSec }

// GenerationTimeout returns the per-call deadline as a Duration
func (c *AppConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.v.GenerationTimeoutSec) * time.Second
}

func (c *AppConfig) GenerationRetries() int        { return c.v.GenerationRetries }
func (c *AppConfig) MaxConcurrentGenerations() int { return c.v.MaxConcurrentGenerations }

func (c *AppConfig) AcceptanceThreshold() float64 { return c.v.AcceptanceThreshold }
func (c *AppConfig) MaxRetries() int              { return c.v.MaxRetries }
func (c *AppConfig) HistoryWindow() int           { return c.v.HistoryWindow }
func (c *AppConfig) OrderTolerance() float64      { return c.v.OrderTolerance }
func (c *AppConfig) LockMode() string             { return c.v.LockMode }

func (c *AppConfig) StderrLevel() string { return c.v.StderrLevel }

func (c *AppConfig) ConfigSource() string { return c.v.ConfigSource }
func (c *AppConfig) SettingPath() string  { return c.v.SettingPath }
