package output

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned when a named document does not exist in storage
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStorageGateway is the interface for scene document storage.
// Supports both local filesystem and cloud storage (S3).
// Document names are relative, slash-separated keys such as "balcony.yaml".
type DocumentStorageGateway interface {
	// ReadDocument loads a document's raw content
	ReadDocument(ctx context.Context, name string) ([]byte, error)

	// WriteDocument stores content under name, replacing any existing document
	WriteDocument(ctx context.Context, name string, content []byte) error

	// ListDocuments lists document names, sorted
	ListDocuments(ctx context.Context) ([]string, error)

	// Location describes where documents live (directory path or s3:// URL)
	Location() string
}
