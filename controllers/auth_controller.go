package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/middleware"
	"github.com/cadiz-tecnico/avisos-api/models"
)

// LoginRequest represents the request body for POST /api/v1/auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/v1/auth/login - exchanges credentials for a JWT
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", "Username and password are required"))
		return
	}

	db := config.GetDB()
	var user models.User
	err := db.Where("username = ?", req.Username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, errorBody("INVALID_CREDENTIALS", "Invalid username or password"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Failed to look up user"))
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, errorBody("ACCOUNT_DISABLED", "This account has been deactivated"))
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, errorBody("INVALID_CREDENTIALS", "Invalid username or password"))
		return
	}

	token, err := middleware.GenerateToken(&user, config.GetConfig())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("TOKEN_ERROR", "Failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, dataBody(gin.H{
		"token": token,
		"user":  user,
	}))
}

// Me handles GET /api/v1/auth/me - returns the authenticated user
func Me(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Authentication required"))
		return
	}
	c.JSON(http.StatusOK, dataBody(user))
}
