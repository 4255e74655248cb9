package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/middleware"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/services"
	"github.com/cadiz-tecnico/avisos-api/tests/testutil"
)

// setupControllerTest wires a fresh database, mock Telegram transport and
// mock photo storage into the package singletons.
func setupControllerTest(t *testing.T) (*gorm.DB, *services.MockTelegramService, *services.MockPhotoStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	config.SetDB(db)
	config.SetConfig(&config.Config{JWTSecret: "test-secret"})

	tg := services.NewMockTelegramService("-100555")
	tg.SetAsMockForTesting()

	storage := services.NewMockPhotoStorage()
	storage.SetAsMockForTesting()

	return db, tg, storage
}

// authAs injects a user into the request context the way RequireAuth does
func authAs(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CurrentUserKey, user)
		c.Next()
	}
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decodeResponse(t, w)
	errorData, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no error envelope: %s", w.Body.String())
	}
	code, _ := errorData["code"].(string)
	return code
}

// multipartPhotoRequest builds an upload request with one "photo" form file
func multipartPhotoRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatalf("Failed to build multipart body: %v", err)
	}
	part.Write(content)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
