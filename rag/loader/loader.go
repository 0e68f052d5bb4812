package loader

import "context"

// Document is raw text extracted from a source file plus file-level
// metadata (filename, format, size).
type Document struct {
	Text     string
	Metadata map[string]any
}

type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}
