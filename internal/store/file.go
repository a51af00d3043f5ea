package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pathakanu/waremind/internal/model"
)

// FilePersister keeps the reminder collection in a single JSON document.
type FilePersister struct {
	path string
}

// NewFilePersister returns a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// LoadAll reads the file. A missing or empty file is an empty collection.
func (f *FilePersister) LoadAll() ([]model.Reminder, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var reminders []model.Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reminders: %w", err)
	}
	return reminders, nil
}

// ReplaceAll rewrites the whole file. The new content is written next to the
// target and renamed over it so a crash never leaves a half-written file.
func (f *FilePersister) ReplaceAll(reminders []model.Reminder) error {
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	data, err := json.MarshalIndent(reminders, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reminders: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}
