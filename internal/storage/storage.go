// Package storage persists uploaded booking images and yields the public
// URL recorded on the booking.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"vinylbook/internal/config"
)

// Storage saves an uploaded file and returns its public URL.
type Storage interface {
	Save(ctx context.Context, originalName, contentType string, size int64, r io.Reader) (string, error)
}

// New selects the backend from config.
func New(cfg config.StorageConfig, publicBaseURL string) (Storage, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.LocalPath, publicBaseURL+cfg.PublicPrefix)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// objectName produces a collision-free stored name preserving the original
// extension.
func objectName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.NewString() + ext
}
