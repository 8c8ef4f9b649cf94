package layout

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sigreer/disklayer/internal/failure"
)

// InputPath is the hand-written layout for a host
func InputPath(dir, host string) string {
	return filepath.Join(dir, host+".in.json")
}

// ResolvedPath is the layout written back after creation, with device
// identities filled in
func ResolvedPath(dir, host string) string {
	return filepath.Join(dir, host+".json")
}

// Load reads and validates a layout document
func Load(fs afero.Fs, path string) (*Layout, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, failure.Path(path, err)
	}

	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, failure.New(failure.Invalid, path, fmt.Errorf("invalid layout JSON: %w", err))
	}

	if err := Validate(l); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &l, nil
}

// Save writes the layout as indented JSON
func Save(fs afero.Fs, path string, l *Layout) error {
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return failure.New(failure.Generic, path, err)
	}
	data = append(data, '\n')

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return failure.Path(filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return failure.Path(path, err)
	}
	return nil
}
