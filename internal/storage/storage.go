package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/config"
)

// FileStorage stores uploaded resource images
type FileStorage interface {
	// SaveFile saves a file and returns its public URL
	SaveFile(ctx context.Context, file io.Reader, filename string, contentType string) (string, error)
	// DeleteFile deletes a file by its URL
	DeleteFile(ctx context.Context, fileURL string) error
}

// New builds the backend named by cfg.Type
func New(ctx context.Context, cfg config.StorageConfig) (FileStorage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalFileStorage(cfg.UploadDir, cfg.PublicBaseURL)
	case "r2", "s3":
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// extension picks the file extension, falling back to the content subtype
func extension(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return strings.ToLower(ext)
	}
	if _, sub, ok := strings.Cut(contentType, "/"); ok && sub != "" {
		return "." + sub
	}
	return ""
}
