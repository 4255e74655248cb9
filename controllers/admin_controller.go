package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/models"
)

// CreateUserRequest is the body for POST /api/v1/admin/usuarios
type CreateUserRequest struct {
	Username       string  `json:"username" binding:"required"`
	Password       string  `json:"password" binding:"required,min=6"`
	Role           string  `json:"role"`
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	TelegramChatID *string `json:"telegram_chat_id"`
}

// UpdateUserRequest is the body for PUT /api/v1/admin/usuarios/:id. Empty
// password leaves the current one in place.
type UpdateUserRequest struct {
	Password       string  `json:"password"`
	Role           string  `json:"role"`
	FullName       *string `json:"full_name"`
	Phone          *string `json:"phone"`
	TelegramChatID *string `json:"telegram_chat_id"`
}

// ListUsers handles GET /api/v1/admin/usuarios - all accounts with per-user
// workload counts
func ListUsers(c *gin.Context) {
	db := config.GetDB()
	var users []models.User
	if err := db.Order("username ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load users"))
		return
	}

	payload := make([]gin.H, 0, len(users))
	for i := range users {
		var assigned, open int64
		db.Model(&models.Aviso{}).Where("assigned_to_id = ?", users[i].ID).Count(&assigned)
		db.Model(&models.Aviso{}).
			Where("assigned_to_id = ? AND status <> ?", users[i].ID, models.StatusCompleted).
			Count(&open)
		payload = append(payload, gin.H{
			"user":           users[i],
			"assigned_total": assigned,
			"assigned_open":  open,
		})
	}
	c.JSON(http.StatusOK, dataBody(payload))
}

// CreateUser handles POST /api/v1/admin/usuarios
func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Username and a password of at least 6 characters are required"))
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleTechnician
	}
	if role != models.RoleAdmin && role != models.RoleTechnician {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ROLE", "Role must be admin or tecnico"))
		return
	}

	username := strings.TrimSpace(strings.ToLower(req.Username))
	if username == "" {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Username is required"))
		return
	}

	db := config.GetDB()
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, errorBody("USERNAME_TAKEN", "A user with this username already exists"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to look up user"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("HASH_ERROR", "Failed to hash password"))
		return
	}

	user := models.User{
		Username:       username,
		PasswordHash:   string(hash),
		Role:           role,
		IsActive:       true,
		FullName:       req.FullName,
		Phone:          req.Phone,
		TelegramChatID: req.TelegramChatID,
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to create user"))
		return
	}
	c.JSON(http.StatusCreated, dataBody(user))
}

// UpdateUser handles PUT /api/v1/admin/usuarios/:id
func UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ID", "User ID must be a number"))
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Invalid request data"))
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "User not found"))
		} else {
			c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load user"))
		}
		return
	}

	if req.Role != "" {
		if req.Role != models.RoleAdmin && req.Role != models.RoleTechnician {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_ROLE", "Role must be admin or tecnico"))
			return
		}
		if user.Username == models.BootstrapAdminUsername && req.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, errorBody("FORBIDDEN", "The bootstrap admin account cannot be demoted"))
			return
		}
		user.Role = req.Role
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Password must be at least 6 characters"))
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorBody("HASH_ERROR", "Failed to hash password"))
			return
		}
		user.PasswordHash = string(hash)
	}
	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.TelegramChatID != nil {
		user.TelegramChatID = req.TelegramChatID
	}

	if err := db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to update user"))
		return
	}
	c.JSON(http.StatusOK, dataBody(user))
}

// ToggleUser handles POST /api/v1/admin/usuarios/:id/toggle - flips the
// active flag. The bootstrap admin account cannot be deactivated.
func ToggleUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_ID", "User ID must be a number"))
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "User not found"))
		} else {
			c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to load user"))
		}
		return
	}

	if user.Username == models.BootstrapAdminUsername {
		c.JSON(http.StatusForbidden, errorBody("FORBIDDEN", "The bootstrap admin account cannot be deactivated"))
		return
	}

	user.IsActive = !user.IsActive
	if err := db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to update user"))
		return
	}
	c.JSON(http.StatusOK, dataBody(user))
}
