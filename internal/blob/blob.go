// Package blob stores pattern files and yarn images as opaque objects keyed
// by sanitized filenames.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

// ErrNotFound is returned by Get and Delete for a key that is not stored.
var ErrNotFound = errors.New("blob: not found")

// ErrExists is returned by Put when the key is already taken.
var ErrExists = errors.New("blob: already exists")

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the blob store collaborator used by the pattern library and the
// yarn catalog. Put never overwrites an existing key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Driver() Driver
}

const maxNameLen = 100

// SanitizeFilename reduces a client-supplied filename to a safe key segment:
// directory components are dropped and anything outside [A-Za-z0-9._-] becomes
// an underscore. Leading dots are removed so the result is never "." or "..".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxNameLen {
		ext := path.Ext(out)
		if len(ext) > 16 {
			ext = ""
		}
		out = out[:maxNameLen-len(ext)] + ext
	}
	if out == "" || strings.Trim(out, "_") == "" {
		return "file"
	}
	return out
}

// NewKey builds a unique storage key for filename under prefix, e.g.
// "patterns/1a2b3c4d-shawl.pdf".
func NewKey(prefix, filename string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + "/" + id + "-" + SanitizeFilename(filename)
}

// validateKey rejects keys that could escape a backend's namespace.
func validateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return errors.New("blob: empty key")
	case strings.HasPrefix(key, "/"):
		return errors.New("blob: absolute key")
	case strings.Contains(key, "\\"):
		return errors.New("blob: key contains backslash")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return errors.New("blob: invalid key segment")
		}
	}
	return nil
}
