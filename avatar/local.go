package avatar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes avatars into a directory served as static files.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore returns a store rooted at dir whose URLs start with urlPrefix,
// e.g. "images/avatar".
func NewLocalStore(dir, urlPrefix string) *LocalStore {
	return &LocalStore{dir: dir, urlPrefix: strings.Trim(urlPrefix, "/")}
}

func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Put(_ context.Context, name string, data []byte) (bool, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, fmt.Errorf("create avatar dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return false, err
	}
	return true, f.Close()
}

func (s *LocalStore) URL(name string) string {
	if s.urlPrefix == "" {
		return name
	}
	return s.urlPrefix + "/" + name
}
