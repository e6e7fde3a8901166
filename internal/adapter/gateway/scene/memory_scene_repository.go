package scene

import (
	"context"
	"fmt"
	"sort"
	"sync"

	scenemodel "github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
)

// MemorySceneRepository serves already-built scenes
type MemorySceneRepository struct {
	mu     sync.RWMutex
	scenes map[string]*scenemodel.Scene
}

// NewMemorySceneRepository creates a repository holding the given scenes
func NewMemorySceneRepository(scenes ...*scenemodel.Scene) *MemorySceneRepository {
	r := &MemorySceneRepository{scenes: make(map[string]*scenemodel.Scene)}
	for _, sc := range scenes {
		r.Add(sc)
	}
	return r
}

// Add stores or replaces a scene
func (r *MemorySceneRepository) Add(sc *scenemodel.Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenes[sc.ID()] = sc
}

func (r *MemorySceneRepository) GetScene(ctx context.Context, id string) (*scenemodel.Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sc, ok := r.scenes[id]
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", id, repository.ErrNotFound)
	}
	return sc, nil
}

func (r *MemorySceneRepository) ListScenes(ctx context.Context) ([]repository.SceneSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]repository.SceneSummary, 0, len(r.scenes))
	for _, sc := range r.scenes {
		out = append(out, repository.SummarizeScene(sc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
