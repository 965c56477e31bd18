package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// registryVersion is the current on-disk envelope version. The envelope is a
// JSON superset of earlier formats; older files decode with missing fields
// that migrateRecord defaults at load time.
const registryVersion = 2

// registryEnvelope is the on-disk layout: one file holding the whole map
// from item id to record.
type registryEnvelope struct {
	Version int                        `json:"version"`
	Items   map[string]json.RawMessage `json:"items"`
}

// FileStore persists the registry as a single JSON file. Every Save is a
// whole-file rewrite through a temp file and rename, so a crashed write
// never leaves a partially written registry behind.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path, creating parent
// directories as needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("registry path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the registry file. A missing file is an empty registry.
func (s *FileStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	var env registryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding registry file: %w", err)
	}
	if env.Items == nil {
		env.Items = map[string]json.RawMessage{}
	}
	return env.Items, nil
}

// Save rewrites the whole registry file atomically.
func (s *FileStore) Save(ctx context.Context, records map[string]json.RawMessage) error {
	env := registryEnvelope{Version: registryVersion, Items: records}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing registry temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
}
