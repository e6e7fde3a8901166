package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

// MemoryStorageGateway keeps documents in memory
type MemoryStorageGateway struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStorageGateway creates an empty in-memory gateway
func NewMemoryStorageGateway() *MemoryStorageGateway {
	return &MemoryStorageGateway{docs: make(map[string][]byte)}
}

func (g *MemoryStorageGateway) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	content, ok := g.docs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, output.ErrDocumentNotFound)
	}
	return append([]byte(nil), content...), nil
}

func (g *MemoryStorageGateway) WriteDocument(ctx context.Context, name string, content []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.docs[name] = append([]byte(nil), content...)
	return nil
}

func (g *MemoryStorageGateway) ListDocuments(ctx context.Context) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	names := make([]string, 0, len(g.docs))
	for name := range g.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (g *MemoryStorageGateway) Location() string {
	return "memory://"
}
