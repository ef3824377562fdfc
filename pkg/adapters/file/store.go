// Package file persists execution history as a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Store implements ports.HistoryStore on the local filesystem.
type Store struct {
	Path string
}

// New creates a Store writing to path. If path is empty, it defaults to
// .scriptdeck/history.json.
func New(path string) *Store {
	if path == "" {
		path = filepath.Join(".scriptdeck", "history.json")
	}
	return &Store{Path: path}
}

// Load reads the history file. A missing file yields an empty map.
func (s *Store) Load(ctx context.Context) (map[string][]domain.RunRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]domain.RunRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var history map[string][]domain.RunRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if history == nil {
		history = map[string][]domain.RunRecord{}
	}
	return history, nil
}

// Save writes the full history atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, history map[string][]domain.RunRecord) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure history directory: %w", err)
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "tmp-history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename on Windows fails when the destination exists.
	if _, err := os.Stat(s.Path); err == nil {
		if err := os.Remove(s.Path); err != nil {
			return fmt.Errorf("failed to remove existing history file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
