// Package scene provides scene repositories backed by YAML documents.
package scene

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/YoshitsuguKoike/rehearsal/internal/app"
	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/model"
	scenemodel "github.com/YoshitsuguKoike/rehearsal/internal/domain/model/scene"
	"github.com/YoshitsuguKoike/rehearsal/internal/domain/repository"
)

var sceneExtensions = []string{".yaml", ".yml"}

// DocumentSceneRepository reads scenes stored as <id>.yaml documents
type DocumentSceneRepository struct {
	storage output.DocumentStorageGateway
	logger  app.Logger
}

// NewDocumentSceneRepository creates a scene repository over a document store
func NewDocumentSceneRepository(storage output.DocumentStorageGateway, logger app.Logger) *DocumentSceneRepository {
	if logger == nil {
		logger = app.GetLogger()
	}
	return &DocumentSceneRepository{storage: storage, logger: logger}
}

// GetScene loads and validates the scene with the given ID
func (r *DocumentSceneRepository) GetScene(ctx context.Context, id string) (*scenemodel.Scene, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("scene %q: %w", id, repository.ErrNotFound)
	}

	for _, ext := range sceneExtensions {
		data, err := r.storage.ReadDocument(ctx, id+ext)
		if errors.Is(err, output.ErrDocumentNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read scene %s: %w", id, err)
		}

		sc, err := Decode(data)
		if err != nil {
			return nil, err
		}
		if sc.ID() != id {
			return nil, model.NewConfigurationError(
				fmt.Sprintf("scene file %s%s declares id %q", id, ext, sc.ID()), nil)
		}
		return sc, nil
	}
	return nil, fmt.Errorf("scene %s in %s: %w", id, r.storage.Location(), repository.ErrNotFound)
}

// ListScenes lists valid scenes; invalid documents are logged and skipped
func (r *DocumentSceneRepository) ListScenes(ctx context.Context) ([]repository.SceneSummary, error) {
	names, err := r.storage.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scene documents: %w", err)
	}

	summaries := make([]repository.SceneSummary, 0, len(names))
	for _, name := range names {
		if !isSceneDocument(name) {
			continue
		}
		id := strings.TrimSuffix(name, path.Ext(name))
		sc, err := r.GetScene(ctx, id)
		if err != nil {
			r.logger.Warn("skipping scene %s: %v", name, err)
			continue
		}
		summaries = append(summaries, repository.SummarizeScene(sc))
	}
	return summaries, nil
}

// DocumentCheck is the validation result for one stored scene document
type DocumentCheck struct {
	Name  string
	Scene *scenemodel.Scene // nil when Err is set
	Err   error
}

// ValidateAll decodes every scene document in the store, reporting each result
func (r *DocumentSceneRepository) ValidateAll(ctx context.Context) ([]DocumentCheck, error) {
	names, err := r.storage.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scene documents: %w", err)
	}

	var checks []DocumentCheck
	for _, name := range names {
		if !isSceneDocument(name) {
			continue
		}
		id := strings.TrimSuffix(name, path.Ext(name))
		sc, err := r.GetScene(ctx, id)
		checks = append(checks, DocumentCheck{Name: name, Scene: sc, Err: err})
	}
	return checks, nil
}

// SaveScene validates a scene document and stores it as <id>.yaml
func (r *DocumentSceneRepository) SaveScene(ctx context.Context, data []byte) (*scenemodel.Scene, error) {
	sc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if strings.ContainsAny(sc.ID(), `/\`) {
		return nil, model.NewConfigurationError(fmt.Sprintf("scene id %q must not contain path separators", sc.ID()), nil)
	}
	if err := r.storage.WriteDocument(ctx, sc.ID()+".yaml", data); err != nil {
		return nil, fmt.Errorf("save scene %s: %w", sc.ID(), err)
	}
	r.logger.Info("scene %s saved to %s", sc.ID(), r.storage.Location())
	return sc, nil
}

// Location describes where scenes are read from
func (r *DocumentSceneRepository) Location() string {
	return r.storage.Location()
}

func isSceneDocument(name string) bool {
	ext := path.Ext(name)
	for _, e := range sceneExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
