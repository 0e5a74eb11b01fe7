package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Filesystem stores blobs as files under a root directory, with a JSON
// sidecar (<file>.meta) holding the content type.
type Filesystem struct {
	root string
}

type fsMeta struct {
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFilesystem returns a store rooted at root, creating the directory if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "blobs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root %s: %w", root, err)
	}
	return &Filesystem{root: root}, nil
}

func (s *Filesystem) Driver() Driver { return DriverFilesystem }

func (s *Filesystem) paths(key string) (data, meta string, err error) {
	if err := validateKey(key); err != nil {
		return "", "", err
	}
	data = filepath.Join(s.root, filepath.FromSlash(key))
	return data, data + ".meta", nil
}

func (s *Filesystem) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, fmt.Errorf("blob: mkdir for %s: %w", key, err)
	}

	// Stream to a temp file and rename so a failed upload leaves nothing behind.
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return Info{}, fmt.Errorf("blob: temp file for %s: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return Info{}, fmt.Errorf("blob: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("blob: close %s: %w", key, err)
	}

	now := time.Now().UTC()
	meta, err := json.Marshal(fsMeta{ContentType: opts.ContentType, Size: size, CreatedAt: now})
	if err != nil {
		return Info{}, fmt.Errorf("blob: encode meta for %s: %w", key, err)
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return Info{}, fmt.Errorf("blob: write meta for %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		_ = os.Remove(metaPath)
		return Info{}, fmt.Errorf("blob: commit %s: %w", key, err)
	}
	return Info{Key: key, Size: size, ContentType: opts.ContentType, LastModified: now}, nil
}

func (s *Filesystem) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("blob: open %s: %w", key, err)
	}

	info := Info{Key: key}
	if raw, err := os.ReadFile(metaPath); err == nil {
		var m fsMeta
		if json.Unmarshal(raw, &m) == nil {
			info.ContentType = m.ContentType
			info.Size = m.Size
			info.LastModified = m.CreatedAt
		}
	}
	if info.Size == 0 {
		if st, err := f.Stat(); err == nil {
			info.Size = st.Size()
			info.LastModified = st.ModTime().UTC()
		}
	}
	return info, f, nil
}

func (s *Filesystem) Delete(_ context.Context, key string) error {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	_ = os.Remove(metaPath)
	return nil
}
