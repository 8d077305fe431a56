package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSBucket stores objects as files under a directory.
type FSBucket struct {
	spec    Spec
	root    string
	baseURL string
}

// NewFSBucket creates the bucket directory under dir. Public URLs are
// baseURL/{bucket}/{key}.
func NewFSBucket(dir, baseURL string, spec Spec) (*FSBucket, error) {
	root := filepath.Join(dir, spec.Name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return &FSBucket{spec: spec, root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Name implements Bucket.
func (b *FSBucket) Name() string { return b.spec.Name }

// Put implements Bucket.
func (b *FSBucket) Put(_ context.Context, key string, data []byte, contentType string) error {
	if err := b.spec.Check(int64(len(data)), contentType); err != nil {
		return err
	}
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

// Get implements Bucket.
func (b *FSBucket) Get(_ context.Context, key string) ([]byte, string, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s/%s", ErrObjectNotFound, b.spec.Name, key)
	}
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// Exists implements Bucket.
func (b *FSBucket) Exists(_ context.Context, key string) (bool, error) {
	p, err := b.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// PublicURL implements Bucket.
func (b *FSBucket) PublicURL(key string) string {
	return b.baseURL + "/" + b.spec.Name + "/" + escapeKey(key)
}

// DeleteDir implements Bucket.
func (b *FSBucket) DeleteDir(_ context.Context, prefix string) error {
	p, err := b.path(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}

func (b *FSBucket) path(key string) (string, error) {
	clean := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(b.root, clean), nil
}
