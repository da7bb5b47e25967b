// Package jsonfile persists small JSON documents with per-path locking and
// atomic replacement. Both the mock data service db and the site settings
// store sit on top of it.
package jsonfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/hnrobert/vanconnect/internal/logger"
)

var globalMu sync.Mutex
var fileMu = map[string]*sync.Mutex{}

// Lock returns the mutex guarding path. Callers that do read-modify-write
// cycles hold it across Load and Save.
func Lock(path string) *sync.Mutex {
	globalMu.Lock()
	defer globalMu.Unlock()
	if m := fileMu[path]; m != nil {
		return m
	}
	m := &sync.Mutex{}
	fileMu[path] = m
	return m
}

// Load decodes path into v. A missing or empty file leaves v untouched and
// reports found=false.
func Load(path string, v any) (found bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes v as indented JSON through a temp file and rename.
func Save(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return WriteFileAtomic(path, b, 0644)
}

func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".vanconnect-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		// Bind-mounted targets refuse rename; rewrite in place instead.
		if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EXDEV) || errors.Is(err, syscall.EPERM) {
			logger.Warn("jsonfile: rename failed for %s (%v); falling back to in-place rewrite", path, err)
			f, err2 := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, perm)
			if err2 != nil {
				return err
			}
			if _, err2 := f.Write(data); err2 != nil {
				_ = f.Close()
				return err2
			}
			_ = f.Sync()
			return f.Close()
		}
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
