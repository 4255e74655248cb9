package services

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/utils"
)

// PhotoStorage is the backing store for aviso evidence photos. It is a
// secondary resource, not transactional with the database: callers must
// tolerate a record and its file diverging, logging the anomaly instead
// of failing the primary operation.
type PhotoStorage interface {
	// SaveFile validates and stores an uploaded photo, returning the
	// generated collision-free stored filename
	SaveFile(fileHeader *multipart.FileHeader) (string, error)

	// DeleteFile removes a stored photo by filename
	DeleteFile(filename string) error

	// FileURL returns the URL a client can fetch the photo from
	FileURL(filename string) (string, error)
}

var photoStorageInstance PhotoStorage

// InitPhotoStorage initializes the photo storage backend selected by configuration
func InitPhotoStorage(cfg *config.Config) (PhotoStorage, error) {
	switch cfg.StorageBackend {
	case "s3":
		backend, err := NewS3Storage(cfg)
		if err != nil {
			return nil, err
		}
		photoStorageInstance = backend
	default:
		backend, err := NewLocalStorage(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		photoStorageInstance = backend
	}
	return photoStorageInstance, nil
}

// GetPhotoStorage returns the initialized photo storage instance
func GetPhotoStorage() PhotoStorage {
	return photoStorageInstance
}

// SetPhotoStorage sets the photo storage instance (primarily for testing)
func SetPhotoStorage(storage PhotoStorage) {
	photoStorageInstance = storage
}

// LocalStorage keeps photos on the local filesystem
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates the upload directory if needed
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

// Dir returns the directory photos are stored in
func (s *LocalStorage) Dir() string {
	return s.dir
}

// SaveFile validates and writes an uploaded photo to disk
func (s *LocalStorage) SaveFile(fileHeader *multipart.FileHeader) (storedName string, err error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	storedName = utils.StoredFilename(fileHeader.Filename)
	fullPath := filepath.Join(s.dir, storedName)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Printf("warning: failed to close uploaded file: %v", closeErr)
		}
	}()

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create photo file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close photo file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save photo: %w", err)
	}

	return storedName, nil
}

// DeleteFile removes a photo from disk. A missing file is not an error.
func (s *LocalStorage) DeleteFile(filename string) error {
	if filename == "" {
		return nil
	}
	fullPath := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete photo file: %w", err)
	}
	return nil
}

// FileURL returns the API path the photo is served from
func (s *LocalStorage) FileURL(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename), nil
}
