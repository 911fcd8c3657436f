package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("staged file not found")

// Storage holds uploads for the lifetime of one extraction.
type Storage interface {
	Put(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocal(cfg.LocalPath)
	case TypeS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET is required for s3 storage")
		}
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StagingKey returns a collision-free key "<uuid>_<sanitised name>".
func StagingKey(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")

	if name == "" || name == "_" {
		name = "upload"
	}

	if len(name) > 100 {
		name = name[len(name)-100:]
	}

	return uuid.NewString() + "_" + name
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
