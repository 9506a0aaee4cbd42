// Package workspace reads and writes the local workspace configuration file
// (".aio") and derives the project context, credentials and registration
// ledger from it.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"

	"github.com/goliatone/go-event-registrations/core"
)

const DefaultFileName = ".aio"

// FileStore is a dotted-key view over a JSONC document on disk. Comments in
// the source file are not preserved on persist.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// OpenFileStore loads path. A missing file yields an empty store that is
// created on the first persisted Set.
func OpenFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultFileName
	}
	store := &FileStore{path: path, data: map[string]any{}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workspace: read %s: %w", path, err)
	}
	data, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("workspace: %s: %w", path, err)
	}
	store.data = data
	return store, nil
}

// NewMemoryStore returns a store that never touches disk.
func NewMemoryStore(data map[string]any) *FileStore {
	if data == nil {
		data = map[string]any{}
	}
	return &FileStore{data: data}
}

// Parse strips comments and trailing commas before decoding.
func Parse(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(jsonc.ToJSON(raw), &data); err != nil {
		return nil, fmt.Errorf("parsing workspace config: %w", err)
	}
	return data, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.data, splitKey(key))
}

func (s *FileStore) Set(key string, value any, persist bool) error {
	parts := splitKey(key)
	if len(parts) == 0 {
		return fmt.Errorf("workspace: config key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = normalize(value)

	if !persist || s.path == "" {
		return nil
	}
	return s.writeLocked()
}

func (s *FileStore) writeLocked() error {
	encoded, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("workspace: encode config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("workspace: create config dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, append(encoded, '\n'), 0o600); err != nil {
		return fmt.Errorf("workspace: write %s: %w", s.path, err)
	}
	return nil
}

func splitKey(key string) []string {
	key = strings.Trim(strings.TrimSpace(key), ".")
	if key == "" {
		return nil
	}
	return strings.Split(key, ".")
}

func lookup(data map[string]any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return nil, false
	}
	var current any = data
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// normalize round-trips structured values through JSON so reads after a Set
// see the same shapes as reads after a reload.
func normalize(value any) any {
	switch value.(type) {
	case nil, string, bool, float64, map[string]any, []any:
		return value
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return value
	}
	return out
}

func stringAt(store core.ConfigStore, key string) string {
	value, ok := store.Get(key)
	if !ok {
		return ""
	}
	return valueString(value)
}

func valueString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", typed))
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

var _ core.ConfigStore = (*FileStore)(nil)
