package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// ErrObjectNotFound is returned for keys with no stored file.
var ErrObjectNotFound = errors.New("object not found")

// Backend is a filesystem implementation of contentcore.BlobStore.
// Object keys map to paths under the base directory.
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend.
type Config struct {
	BaseDir   string // base directory for stored files
	URLPrefix string // optional URL prefix for download URLs
}

// New creates a new filesystem storage backend, creating the base
// directory if needed.
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: config.URLPrefix,
	}, nil
}

func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	filePath := filepath.Join(b.baseDir, objectKey)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(b.baseDir, objectKey))
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath := filepath.Join(b.baseDir, objectKey)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return ErrObjectNotFound
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string) (string, error) {
	if b.urlPrefix == "" {
		return "", errors.New("direct download required for filesystem backend")
	}
	return fmt.Sprintf("%s/download/%s", b.urlPrefix, objectKey), nil
}

func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*contentcore.ObjectMeta, error) {
	filePath := filepath.Join(b.baseDir, objectKey)
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	return &contentcore.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// cleanupEmptyDirectories removes empty directories up to baseDir.
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir {
		return
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
