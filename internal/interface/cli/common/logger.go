package common

import (
	"io"
	"strings"

	"github.com/YoshitsuguKoike/rehearsal/internal/app"
)

// LogLevelFromString converts a string to an app.Level, defaulting to WARN
func LogLevelFromString(level string) app.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return app.LevelDebug
	case "info":
		return app.LevelInfo
	case "warn", "warning":
		return app.LevelWarn
	case "error", "fatal":
		return app.LevelError
	case "off", "silent":
		return app.LevelOff
	default:
		return app.LevelWarn
	}
}

// InitGlobalLogger installs a leveled logger writing to w as the app layer logger
func InitGlobalLogger(level string, w io.Writer) app.Logger {
	logger := app.NewWriterLogger(w, LogLevelFromString(level))
	app.SetLogger(logger)
	return logger
}
