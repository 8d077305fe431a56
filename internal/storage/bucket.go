package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrObjectNotFound is returned by Get for a missing key.
	ErrObjectNotFound = errors.New("object not found")

	// ErrTooLarge is returned when an object exceeds the bucket limit.
	ErrTooLarge = errors.New("object exceeds bucket size limit")

	// ErrMIMENotAllowed is returned for a content type the bucket rejects.
	ErrMIMENotAllowed = errors.New("content type not allowed")
)

// Bucket names.
const (
	SpellingImages = "spelling-images"
	WordImages     = "word-images"
	WordAudios     = "word-audios"
)

// Spec describes a bucket's upload policy.
type Spec struct {
	Name         string
	MaxBytes     int64
	AllowedMIMEs []string
}

var imageMIMEs = []string{"image/png", "image/jpeg", "image/jpg", "image/webp"}

// Specs are the buckets the service uses.
var Specs = map[string]Spec{
	SpellingImages: {Name: SpellingImages, MaxBytes: 10 << 20, AllowedMIMEs: imageMIMEs},
	WordImages:     {Name: WordImages, MaxBytes: 5 << 20, AllowedMIMEs: imageMIMEs},
	WordAudios:     {Name: WordAudios, MaxBytes: 1 << 20, AllowedMIMEs: []string{"audio/mpeg"}},
}

// Check validates an upload against the bucket size and MIME limits.
func (s Spec) Check(size int64, mime string) error {
	if s.MaxBytes > 0 && size > s.MaxBytes {
		return fmt.Errorf("%w: %s: %d > %d bytes", ErrTooLarge, s.Name, size, s.MaxBytes)
	}
	if len(s.AllowedMIMEs) > 0 && !slices.Contains(s.AllowedMIMEs, mime) {
		return fmt.Errorf("%w: %s: %s", ErrMIMENotAllowed, s.Name, mime)
	}
	return nil
}

// Bucket is an object store namespace. Put overwrites existing keys.
type Bucket interface {
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
	// DeleteDir removes every object whose key starts with prefix.
	DeleteDir(ctx context.Context, prefix string) error
}

// Buckets groups the three buckets used by the service.
type Buckets struct {
	Spelling Bucket
	Words    Bucket
	Audio    Bucket
}
