// Package storage persists uploaded media blobs.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore saves and removes media objects addressed by object name.
type BlobStore interface {
	Save(ctx context.Context, objectName string, r io.Reader) error
	Remove(ctx context.Context, objectName string) error
	PublicURL(objectName string) string
}

// ObjectName generates a collision-free name for a new object. ext must
// include the leading dot.
func ObjectName(ext string) string {
	return uuid.NewString() + ext
}

type localStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore returns a BlobStore backed by a directory on disk. Objects
// are served under baseURL by the HTTP layer.
func NewLocalStore(baseDir, baseURL string) (BlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &localStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *localStore) Save(ctx context.Context, objectName string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(objectName)
	if err != nil {
		return err
	}

	dst, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = os.Remove(full)
		return fmt.Errorf("write object: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	return nil
}

func (s *localStore) Remove(ctx context.Context, objectName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *localStore) PublicURL(objectName string) string {
	return s.baseURL + "/" + objectName
}

// resolve rejects names that would escape the base directory.
func (s *localStore) resolve(objectName string) (string, error) {
	clean := path.Clean("/" + objectName)
	if clean == "/" || strings.Contains(objectName, "..") {
		return "", fmt.Errorf("invalid object name %q", objectName)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}
