package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/w-h-a/mnemo/rag/loader"
)

var formats = map[string]string{
	".txt":      "text",
	".text":     "text",
	".md":       "markdown",
	".markdown": "markdown",
	".log":      "text",
}

type fileLoader struct{}

func (l *fileLoader) Load(ctx context.Context, path string) (*loader.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	format, ok := formats[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported document format %q", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	return &loader.Document{
		Text: string(data),
		Metadata: map[string]any{
			"filename": filepath.Base(path),
			"format":   format,
			"size":     info.Size(),
		},
	}, nil
}

func NewLoader() loader.Loader {
	return &fileLoader{}
}
