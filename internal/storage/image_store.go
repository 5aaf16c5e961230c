package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageStore persists uploaded scan images on local disk under a
// date-keyed directory layout: <root>/scans/YYYY/MM/DD/<uuid><ext>.
// The stored path is the only handle the inference client needs.
type ImageStore struct {
	root string
	now  func() time.Time
}

func NewImageStore(root string) *ImageStore {
	return &ImageStore{root: root, now: time.Now}
}

// Save writes the uploaded file and returns its path relative to the
// media root.
func (s *ImageStore) Save(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	now := s.now()
	relDir := filepath.Join("scans", now.Format("2006"), now.Format("01"), now.Format("02"))
	relPath := filepath.Join(relDir, uuid.New().String()+ext)

	absDir := filepath.Join(s.root, relDir)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	dst, err := os.Create(filepath.Join(s.root, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return relPath, nil
}

// AbsolutePath resolves a stored relative path to a readable location
// on disk.
func (s *ImageStore) AbsolutePath(relPath string) string {
	return filepath.Join(s.root, relPath)
}

// Exists reports whether the stored image is readable.
func (s *ImageStore) Exists(relPath string) bool {
	if relPath == "" {
		return false
	}
	_, err := os.Stat(s.AbsolutePath(relPath))
	return err == nil
}

// Remove deletes a stored image. Missing files are not an error; the
// record is already gone.
func (s *ImageStore) Remove(relPath string) error {
	if relPath == "" {
		return nil
	}
	if err := os.Remove(s.AbsolutePath(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}
