package controllers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/services"
	"github.com/cadiz-tecnico/avisos-api/utils"
)

// UploadPhoto handles POST /api/v1/avisos/:id/fotos - attaches an image
func UploadPhoto(c *gin.Context) {
	aviso, user, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "A photo file is required"))
		return
	}

	storedName, err := services.GetPhotoStorage().SaveFile(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			c.JSON(http.StatusBadRequest, errorBody(uploadErr.Code, uploadErr.Message))
			return
		}
		c.JSON(http.StatusInternalServerError, errorBody("STORAGE_ERROR", "Failed to store photo"))
		return
	}

	photo := models.Photo{
		AvisoID:      aviso.ID,
		Filename:     storedName,
		OriginalName: fileHeader.Filename,
		UploadedByID: &user.ID,
	}

	db := config.GetDB()
	if err := db.Create(&photo).Error; err != nil {
		// Keep storage consistent with the database when the insert fails.
		_ = services.GetPhotoStorage().DeleteFile(storedName)
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to save photo record"))
		return
	}
	db.Model(aviso).Update("updated_at", time.Now())

	c.JSON(http.StatusCreated, dataBody(photoPayload(&photo)))
}

// ListPhotos handles GET /api/v1/avisos/:id/fotos
func ListPhotos(c *gin.Context) {
	aviso, _, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	var photos []models.Photo
	err := config.GetDB().
		Where("aviso_id = ?", aviso.ID).
		Order("uploaded_at ASC").
		Find(&photos).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load photos"))
		return
	}

	payload := make([]gin.H, 0, len(photos))
	for i := range photos {
		payload = append(payload, photoPayload(&photos[i]))
	}
	c.JSON(http.StatusOK, dataBody(payload))
}

// DeletePhoto handles DELETE /api/v1/avisos/:id/fotos/:photoID
func DeletePhoto(c *gin.Context) {
	aviso, _, ok := loadVisibleAviso(c, false)
	if !ok {
		return
	}

	photoID, err := strconv.ParseUint(c.Param("photoID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ID", "Photo ID must be a number"))
		return
	}

	db := config.GetDB()
	var photo models.Photo
	if err := db.First(&photo, uint(photoID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Photo not found"))
		} else {
			c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load photo"))
		}
		return
	}
	if photo.AvisoID != aviso.ID {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "Photo not found"))
		return
	}

	if err := db.Delete(&photo).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to delete photo"))
		return
	}
	if err := services.GetPhotoStorage().DeleteFile(photo.Filename); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"deleted": photo.ID, "file_removed": false},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deleted": photo.ID, "file_removed": true},
	})
}

// GetUploadedPhoto handles GET /api/v1/uploads/:filename - serves files from
// local storage. Only meaningful with the local backend.
func GetUploadedPhoto(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Filename is required"))
		return
	}

	// Prevent directory traversal.
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_FILENAME", "Invalid filename"))
		return
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !utils.AllowedImageExtensions[ext] {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_FILE_TYPE", "Unsupported file type"))
		return
	}

	local, ok := services.GetPhotoStorage().(*services.LocalStorage)
	if !ok {
		c.JSON(http.StatusNotFound, errorBody("FILE_NOT_FOUND", "Photo not found"))
		return
	}

	filePath := filepath.Join(local.Dir(), filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, errorBody("FILE_NOT_FOUND", "Photo not found"))
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}

func photoPayload(photo *models.Photo) gin.H {
	url, err := services.GetPhotoStorage().FileURL(photo.Filename)
	if err != nil {
		url = ""
	}
	return gin.H{
		"id":            photo.ID,
		"aviso_id":      photo.AvisoID,
		"filename":      photo.Filename,
		"original_name": photo.OriginalName,
		"uploaded_at":   photo.UploadedAt,
		"url":           url,
	}
}
