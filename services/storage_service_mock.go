package services

import (
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/cadiz-tecnico/avisos-api/utils"
)

// MockPhotoStorage is a mock implementation of PhotoStorage for testing
type MockPhotoStorage struct {
	storedFiles  map[string][]byte
	deletedFiles []string
	FailDelete   bool // when true, DeleteFile reports a storage failure
	FailSave     bool // when true, SaveFile reports a storage failure
	mu           sync.RWMutex
}

// NewMockPhotoStorage creates a new mock photo storage
func NewMockPhotoStorage() *MockPhotoStorage {
	return &MockPhotoStorage{
		storedFiles: make(map[string][]byte),
	}
}

// SetAsMockForTesting sets this mock as the global photo storage instance for testing
func (m *MockPhotoStorage) SetAsMockForTesting() {
	SetPhotoStorage(m)
}

// SaveFile simulates storing an uploaded photo
func (m *MockPhotoStorage) SaveFile(fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}
	if m.FailSave {
		return "", fmt.Errorf("mock storage save failure")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content := make([]byte, fileHeader.Size)
	if _, err := file.Read(content); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	storedName := utils.StoredFilename(fileHeader.Filename)

	m.mu.Lock()
	m.storedFiles[storedName] = content
	m.mu.Unlock()

	return storedName, nil
}

// DeleteFile simulates deleting a photo, recording what was asked for
func (m *MockPhotoStorage) DeleteFile(filename string) error {
	if filename == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedFiles = append(m.deletedFiles, filename)
	if m.FailDelete {
		return fmt.Errorf("mock storage delete failure")
	}
	delete(m.storedFiles, filename)
	return nil
}

// FileURL returns a mock URL for a stored photo
func (m *MockPhotoStorage) FileURL(filename string) (string, error) {
	if filename == "" {
		return "", nil
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename), nil
}

// FileExists checks if a photo exists in mock storage
func (m *MockPhotoStorage) FileExists(filename string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.storedFiles[filename]
	return exists
}

// DeletedFiles returns every filename a delete was attempted for
func (m *MockPhotoStorage) DeletedFiles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.deletedFiles))
	copy(out, m.deletedFiles)
	return out
}

// StoredCount returns how many photos the mock currently holds
func (m *MockPhotoStorage) StoredCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.storedFiles)
}

// Clear resets the mock storage
func (m *MockPhotoStorage) Clear() {
	m.mu.Lock()
	m.storedFiles = make(map[string][]byte)
	m.deletedFiles = nil
	m.mu.Unlock()
}
