package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

// LocalStorageGateway implements DocumentStorageGateway on a directory of an afero.Fs.
// Documents are plain files directly under baseDir.
type LocalStorageGateway struct {
	fs      afero.Fs
	baseDir string
}

// NewLocalStorageGateway creates a gateway over baseDir, creating the directory if needed
func NewLocalStorageGateway(fsys afero.Fs, baseDir string) (*LocalStorageGateway, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if err := fsys.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}
	return &LocalStorageGateway{fs: fsys, baseDir: baseDir}, nil
}

// ReadDocument reads a document from baseDir
func (g *LocalStorageGateway) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	p, err := g.resolve(name)
	if err != nil {
		return nil, err
	}
	content, err := afero.ReadFile(g.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, output.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return content, nil
}

// WriteDocument replaces the document atomically
func (g *LocalStorageGateway) WriteDocument(ctx context.Context, name string, content []byte) error {
	p, err := g.resolve(name)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(g.fs, p, content); err != nil {
		return fmt.Errorf("write document %s: %w", name, err)
	}
	return nil
}

// ListDocuments lists regular files in baseDir, skipping hidden and temp files
func (g *LocalStorageGateway) ListDocuments(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(g.fs, g.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read document directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Location returns the base directory
func (g *LocalStorageGateway) Location() string {
	return g.baseDir
}

// resolve maps a document name to a path, rejecting names that escape baseDir
func (g *LocalStorageGateway) resolve(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(g.baseDir, filepath.FromSlash(clean)), nil
}

// writeFileAtomic writes data through a temp file and rename so readers never see a partial document
func writeFileAtomic(fsys afero.Fs, p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fsys, dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer fsys.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := fsys.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", p, err)
	}
	return nil
}
