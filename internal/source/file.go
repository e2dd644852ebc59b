package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go-job-digest/internal/models"
)

// File reads listings from a local JSON file: either a list or {"jobs": [...]}.
type File struct {
	path string
}

func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: --input-file is required for the file source", ErrNotConfigured)
	}
	return &File{path: path}, nil
}

func (f *File) Name() string { return "file" }

func (f *File) Fetch(_ context.Context) ([]models.RawJob, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("input file not found: %s", f.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	v, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	switch t := v.(type) {
	case []any:
		return rawJobs(t), nil
	case map[string]any:
		if list, ok := t["jobs"].([]any); ok {
			return rawJobs(list), nil
		}
	}
	return nil, fmt.Errorf("%s: %w: want a list or {\"jobs\": [...]}", f.path, ErrBadPayload)
}
