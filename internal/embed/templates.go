package embed

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

//go:embed templates/scenes/*
var templatesFS embed.FS

// Template represents a template file to be written
type Template struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// GetTemplates returns all templates to be written during init
func GetTemplates() ([]Template, error) {
	var templates []Template

	err := fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		templates = append(templates, Template{
			Path:    strings.TrimPrefix(path, "templates/"),
			Content: content,
			Mode:    0644,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// WriteTemplateResult represents the result of writing a template
type WriteTemplateResult struct {
	Path   string
	Action string // "WROTE", "SKIP", "WROTE (force)"
}

// WriteTemplate writes a template file atomically and returns the action taken
func WriteTemplate(fsys afero.Fs, baseDir string, tmpl Template, force bool) (*WriteTemplateResult, error) {
	fullPath := filepath.Join(baseDir, tmpl.Path)
	result := &WriteTemplateResult{Path: tmpl.Path}

	dir := filepath.Dir(fullPath)
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	exists, err := afero.Exists(fsys, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", fullPath, err)
	}
	if exists && !force {
		result.Action = "SKIP"
		return result, nil
	}

	tmpFile := fullPath + ".tmp"
	if err := afero.WriteFile(fsys, tmpFile, tmpl.Content, tmpl.Mode); err != nil {
		return nil, fmt.Errorf("failed to write temp file %s: %w", tmpFile, err)
	}
	if err := fsys.Rename(tmpFile, fullPath); err != nil {
		fsys.Remove(tmpFile)
		return nil, fmt.Errorf("failed to rename %s to %s: %w", tmpFile, fullPath, err)
	}

	if force && exists {
		result.Action = "WROTE (force)"
	} else {
		result.Action = "WROTE"
	}
	return result, nil
}
