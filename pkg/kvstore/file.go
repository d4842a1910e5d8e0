package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// File persists the key space as one JSON object on disk, rewritten on every
// Set. It is the single-browsing-context analog for the terminal widget:
// state survives restarts of the same profile, last write wins.
type File struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

func OpenFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore open %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.values); err != nil {
			return nil, fmt.Errorf("kvstore decode %s: %w", path, err)
		}
	}
	return f, nil
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	data, err := json.Marshal(f.values)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("kvstore write %s: %w", f.path, err)
	}
	return nil
}
