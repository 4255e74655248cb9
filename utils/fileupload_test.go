package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a mock multipart.FileHeader for testing
func createTestFileHeader(t *testing.T, filename string, size int64) *multipart.FileHeader {
	t.Helper()

	content := []byte("fake image content")
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	part.Write(content)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	require.NotEmpty(t, form.File["photo"])
	fileHeader := form.File["photo"][0]
	// Override size so oversized uploads can be simulated without a real 16MB file.
	fileHeader.Size = size
	return fileHeader
}

func TestValidateImageFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantCode string
	}{
		{"png accepted", "foto.png", 2048, ""},
		{"jpg accepted", "foto.jpg", 2048, ""},
		{"jpeg accepted", "foto.JPEG", 2048, ""},
		{"webp accepted", "foto.webp", 2048, ""},
		{"heic accepted", "IMG_0001.HEIC", 2048, ""},
		{"pdf rejected", "factura.pdf", 2048, "INVALID_FILE_FORMAT"},
		{"no extension rejected", "foto", 2048, "INVALID_FILE_FORMAT"},
		{"too large", "foto.png", MaxFileSize + 1, "FILE_TOO_LARGE"},
		{"exactly at limit", "foto.png", MaxFileSize, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileHeader := createTestFileHeader(t, tt.filename, tt.size)

			err := ValidateImageFile(fileHeader)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fileErr, ok := err.(*FileUploadError)
			require.True(t, ok, "Error should be of type FileUploadError")
			assert.Equal(t, tt.wantCode, fileErr.Code)
		})
	}
}

func TestStoredFilename(t *testing.T) {
	name := StoredFilename("Mi Foto.JPG")
	assert.True(t, strings.HasSuffix(name, ".jpg"), "stored name %q should keep a lowercased extension", name)
	assert.NotContains(t, name, "-")
	assert.Len(t, name, 32+len(".jpg"))

	// Two uploads of the same file never collide.
	assert.NotEqual(t, name, StoredFilename("Mi Foto.JPG"))
}
