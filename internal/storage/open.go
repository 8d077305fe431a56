package storage

import (
	"context"
	"fmt"

	"github.com/mitchellh/go-homedir"
)

// Config selects and configures the bucket backend.
type Config struct {
	Backend   string   `mapstructure:"backend"` // fs or s3
	Dir       string   `mapstructure:"dir"`
	PublicURL string   `mapstructure:"public_url"`
	S3        S3Config `mapstructure:"s3"`
}

// Open builds the three service buckets for the configured backend.
func Open(ctx context.Context, cfg Config) (*Buckets, error) {
	switch cfg.Backend {
	case "", "fs":
		dir, err := homedir.Expand(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("expand storage dir: %w", err)
		}
		if dir == "" {
			return nil, fmt.Errorf("storage dir is required for the fs backend")
		}
		base := cfg.PublicURL
		if base == "" {
			base = "/media"
		}
		open := func(name string) (Bucket, error) {
			return NewFSBucket(dir, base, Specs[name])
		}
		return openAll(open)

	case "s3":
		client, err := NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		open := func(name string) (Bucket, error) {
			return NewS3Bucket(client, cfg.S3, Specs[name]), nil
		}
		return openAll(open)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func openAll(open func(name string) (Bucket, error)) (*Buckets, error) {
	var (
		b   Buckets
		err error
	)
	if b.Spelling, err = open(SpellingImages); err != nil {
		return nil, err
	}
	if b.Words, err = open(WordImages); err != nil {
		return nil, err
	}
	if b.Audio, err = open(WordAudios); err != nil {
		return nil, err
	}
	return &b, nil
}
