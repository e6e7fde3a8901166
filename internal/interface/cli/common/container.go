package common

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	"github.com/YoshitsuguKoike/rehearsal/internal/infrastructure/di"
)

// InitializeContainer creates a DI container from the loaded global configuration
func InitializeContainer(ctx context.Context) (*di.Container, error) {
	cfg := GetGlobalConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	return di.NewContainer(ctx, di.Config{
		Settings: cfg,
		Logger:   app.GetLogger(),
	})
}
