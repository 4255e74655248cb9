package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/cadiz-tecnico/avisos-api/config"
	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/tests/testutil"
)

func authTestSetup(t *testing.T) (*config.Config, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	config.SetDB(db)

	cfg := &config.Config{JWTSecret: "test-secret"}
	user := testutil.CreateUser(t, db, "paco", "secret123", models.RoleTechnician)
	return cfg, user
}

func protectedRouter(cfg *config.Config, adminOnly bool) *gin.Engine {
	router := gin.New()
	group := router.Group("/", RequireAuth(cfg))
	if adminOnly {
		group.Use(RequireAdmin())
	}
	group.GET("/protected", func(c *gin.Context) {
		user, err := GetCurrentUser(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": user.Username})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	cfg, user := authTestSetup(t)

	validToken, err := GenerateToken(user, cfg)
	assert.NoError(t, err)

	wrongKeyToken, err := GenerateToken(user, &config.Config{JWTSecret: "other-secret"})
	assert.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	expiredToken, err := expired.SignedString([]byte(cfg.JWTSecret))
	assert.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + validToken, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc123", http.StatusUnauthorized},
		{"wrong signing key", "Bearer " + wrongKeyToken, http.StatusUnauthorized},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
	}

	router := protectedRouter(cfg, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code, "Response body: %s", w.Body.String())
		})
	}
}

func TestRequireAuthDeactivatedAccount(t *testing.T) {
	cfg, user := authTestSetup(t)

	token, err := GenerateToken(user, cfg)
	assert.NoError(t, err)

	// Deactivate after issuing the token; the existing token must stop working.
	assert.NoError(t, config.GetDB().Model(user).Update("is_active", false).Error)

	router := protectedRouter(cfg, false)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	cfg, tech := authTestSetup(t)
	admin := testutil.CreateUser(t, config.GetDB(), "jefa", "secret123", models.RoleAdmin)

	techToken, err := GenerateToken(tech, cfg)
	assert.NoError(t, err)
	adminToken, err := GenerateToken(admin, cfg)
	assert.NoError(t, err)

	router := protectedRouter(cfg, true)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+techToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("user present", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set(CurrentUserKey, &models.User{Username: "paco"})

		user, err := GetCurrentUser(c)
		assert.NoError(t, err)
		assert.Equal(t, "paco", user.Username)
	})

	t.Run("user missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		user, err := GetCurrentUser(c)
		assert.Error(t, err)
		assert.Nil(t, user)
	})

	t.Run("wrong type in context", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set(CurrentUserKey, "not a user")

		user, err := GetCurrentUser(c)
		assert.Error(t, err)
		assert.Nil(t, user)
	})
}

func TestAuthError(t *testing.T) {
	err := &AuthError{Code: "TEST_ERROR", Message: "This is a test error"}
	assert.Equal(t, "This is a test error", err.Error())
}
