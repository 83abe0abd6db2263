package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/trendscout/internal/types"
)

// FileKV stores every key in one JSON object on disk. Each Put rewrites
// the file through a temp file and rename, so readers never see a torn
// document.
type FileKV struct {
	path   string
	mu     sync.Mutex
	data   map[string]json.RawMessage
	logger *slog.Logger
}

// NewFileKV opens (or lazily creates) the JSON document at path.
func NewFileKV(path string, logger *slog.Logger) (*FileKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Op: "mkdir", Err: err}
	}
	kv := &FileKV{
		path:   path,
		data:   make(map[string]json.RawMessage),
		logger: logger.With("component", "file_kv"),
	}
	if err := kv.load(); err != nil {
		return nil, err
	}
	return kv, nil
}

func (kv *FileKV) load() error {
	f, err := os.Open(kv.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &types.StorageError{Backend: "file", Op: "open", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		return nil
	}
	if err := json.NewDecoder(f).Decode(&kv.data); err != nil {
		return &types.StorageError{Backend: "file", Op: "decode", Err: fmt.Errorf("%s: %w", kv.path, err)}
	}
	kv.logger.Debug("snapshot document loaded", "path", kv.path, "keys", len(kv.data))
	return nil
}

func (kv *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (kv *FileKV) Put(_ context.Context, key string, value []byte) error {
	// Values are kept compact so bytes read back after a reopen match
	// what was stored.
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return &types.StorageError{Backend: "file", Op: "put", Err: fmt.Errorf("value for %q is not valid JSON: %w", key, err)}
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()

	prev, had := kv.data[key]
	kv.data[key] = json.RawMessage(buf.Bytes())
	if err := kv.flush(); err != nil {
		if had {
			kv.data[key] = prev
		} else {
			delete(kv.data, key)
		}
		return err
	}
	return nil
}

func (kv *FileKV) Keys(_ context.Context, prefix string) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return sortedKeys(kv.data, prefix), nil
}

func (kv *FileKV) Close() error { return nil }

// flush writes to a temp file, then renames (atomic write). Caller holds mu.
func (kv *FileKV) flush() error {
	tmpPath := kv.path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return &types.StorageError{Backend: "file", Op: "create", Err: err}
	}

	if err := json.NewEncoder(f).Encode(kv.data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &types.StorageError{Backend: "file", Op: "encode", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return &types.StorageError{Backend: "file", Op: "close", Err: err}
	}

	if err := os.Rename(tmpPath, kv.path); err != nil {
		return &types.StorageError{Backend: "file", Op: "rename", Err: err}
	}
	return nil
}
