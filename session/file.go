package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage persists keys as one JSON object in a file. Every mutation
// rewrites the file through a temp file and rename, so a pair write is atomic
// on filesystems with atomic rename.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage returns a backend rooted at path. The parent directory is
// created on first write with 0700 permissions.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file.
func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readLocked()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *FileStorage) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readLocked()
	if err != nil {
		return err
	}
	data[key] = value
	return f.writeLocked(data)
}

func (f *FileStorage) SetPair(_ context.Context, k1, v1, k2, v2 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readLocked()
	if err != nil {
		return err
	}
	data[k1] = v1
	data[k2] = v2
	return f.writeLocked(data)
}

func (f *FileStorage) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readLocked()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := data[k]; ok {
			delete(data, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.writeLocked(data)
}

func (f *FileStorage) readLocked() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	data := map[string]string{}
	if err := json.Unmarshal(raw, &data); err != nil {
		// An unreadable file holds no usable credential; the next write replaces it.
		return map[string]string{}, nil
	}
	return data, nil
}

func (f *FileStorage) writeLocked(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
