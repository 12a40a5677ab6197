package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"constitution-gpt/internal/config"
)

var (
	ErrInvalidKey = errors.New("invalid file key")
	ErrNotFound   = errors.New("file not found")
)

// Store keeps message attachments under flat keys.
type Store interface {
	Type() string
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "local":
		return NewLocal(cfg.LocalDir)
	case "s3":
		return NewS3(ctx, S3Options{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Prefix:       cfg.S3Prefix,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}
