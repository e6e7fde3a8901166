package repository

import (
	"context"

	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
)

// SceneSummary is a lightweight listing entry
type SceneSummary struct {
	ID         string
	Title      string
	Lines      int
	ActorLines int
}

// SummarizeScene builds the listing entry for sc
func SummarizeScene(sc *scene.Scene) SceneSummary {
	actor, _ := sc.CountBySpeaker()
	return SceneSummary{ID: sc.ID(), Title: sc.Title(), Lines: sc.Len(), ActorLines: actor}
}

// SceneRepository provides scripted scenes.
// A scene is immutable for the lifetime of any session rehearsing it.
type SceneRepository interface {
	// GetScene retrieves and validates a scene by ID. Returns ErrNotFound if absent.
	GetScene(ctx context.Context, id string) (*scene.Scene, error)

	// ListScenes lists the scenes available to rehearse
	ListScenes(ctx context.Context) ([]SceneSummary, error)
}
