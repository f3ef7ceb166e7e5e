package receipt

import (
	"fmt"
	"os"
	"path/filepath"
)

// ImageStore holds the submitted receipt images. The stored path becomes
// the receipt's image URL provenance field.
type ImageStore interface {
	// Save saves an image and returns the path/filename
	Save(filename string, data []byte) (string, error)

	// Get retrieves an image by path
	Get(path string) ([]byte, error)

	// Delete removes an image
	Delete(path string) error
}

// LocalImageStore implements ImageStore on the local filesystem.
type LocalImageStore struct {
	basePath string
}

// NewLocalImageStore creates a LocalImageStore, creating the directory if
// it doesn't exist.
func NewLocalImageStore(basePath string) (*LocalImageStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}

	return &LocalImageStore{
		basePath: basePath,
	}, nil
}

// Save writes an image file under the base path.
func (l *LocalImageStore) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return filename, nil
}

// Get reads an image file.
func (l *LocalImageStore) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, path))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

// Delete removes an image file.
func (l *LocalImageStore) Delete(path string) error {
	if err := os.Remove(filepath.Join(l.basePath, path)); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}
