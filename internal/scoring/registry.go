package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ModelPointer identifies the currently active trained-model artifact.
// It is written by the (external) training/registration process and read
// here at score time.
type ModelPointer struct {
	ModelPath    string `json:"model_path"`
	ModelVersion string `json:"model_version"`
}

// Registry tracks the active model via a latest.json pointer file.
type Registry struct {
	dir string
}

// NewRegistry creates a registry rooted at the given directory.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

func (r *Registry) pointerPath() string {
	return filepath.Join(r.dir, "latest.json")
}

// SetLatest persists the pointer to the latest model artifact.
func (r *Registry) SetLatest(modelPath, modelVersion string) error {
	if err := os.MkdirAll(r.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}
	payload, err := json.MarshalIndent(ModelPointer{
		ModelPath:    modelPath,
		ModelVersion: modelVersion,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model pointer: %w", err)
	}
	if err := os.WriteFile(r.pointerPath(), payload, 0o640); err != nil {
		return fmt.Errorf("failed to write model pointer: %w", err)
	}
	return nil
}

// GetLatest loads the pointer to the latest model artifact.
// Returns (nil, false) when no pointer is set or the referenced artifact
// is missing — a stale pointer is treated the same as no model.
func (r *Registry) GetLatest() (*ModelPointer, bool) {
	data, err := os.ReadFile(r.pointerPath())
	if err != nil {
		return nil, false
	}

	var ptr ModelPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, false
	}
	if ptr.ModelPath == "" {
		return nil, false
	}
	if _, err := os.Stat(ptr.ModelPath); err != nil {
		return nil, false
	}
	if ptr.ModelVersion == "" {
		ptr.ModelVersion = "unknown"
	}
	return &ptr, true
}
