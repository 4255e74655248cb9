package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadiz-tecnico/avisos-api/models"
	"github.com/cadiz-tecnico/avisos-api/tests/testutil"
)

func adminRouter() *gin.Engine {
	router := gin.New()
	group := router.Group("/api/v1/admin")
	group.GET("/usuarios", ListUsers)
	group.POST("/usuarios", CreateUser)
	group.PUT("/usuarios/:id", UpdateUser)
	group.POST("/usuarios/:id/toggle", ToggleUser)
	return router
}

func TestCreateUserAccount(t *testing.T) {
	db, _, _ := setupControllerTest(t)
	router := adminRouter()

	t.Run("creates technician by default", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/v1/admin/usuarios", gin.H{
			"username": "Nuevo",
			"password": "secret123",
		}))

		require.Equal(t, http.StatusCreated, w.Code, "Response body: %s", w.Body.String())
		data := decodeResponse(t, w)["data"].(map[string]interface{})
		// Usernames are stored lowercased
		assert.Equal(t, "nuevo", data["username"])
		assert.Equal(t, models.RoleTechnician, data["role"])
		assert.Equal(t, true, data["is_active"])
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		testutil.CreateUser(t, db, "paco", "pw", models.RoleTechnician)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/v1/admin/usuarios", gin.H{
			"username": "PACO",
			"password": "secret123",
		}))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "USERNAME_TAKEN", errorCode(t, w))
	})

	tests := []struct {
		name string
		body gin.H
	}{
		{"short password", gin.H{"username": "x", "password": "abc"}},
		{"missing username", gin.H{"password": "secret123"}},
		{"unknown role", gin.H{"username": "y", "password": "secret123", "role": "gerente"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/v1/admin/usuarios", tt.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdateUserAccount(t *testing.T) {
	db, _, _ := setupControllerTest(t)
	user := testutil.CreateUser(t, db, "paco", "pw", models.RoleTechnician)
	router := adminRouter()

	t.Run("promote and set telegram chat", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPut,
			fmt.Sprintf("/api/v1/admin/usuarios/%d", user.ID), gin.H{
				"role":             models.RoleAdmin,
				"telegram_chat_id": "777888",
				"full_name":        "Paco Jiménez",
			}))

		require.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())
		data := decodeResponse(t, w)["data"].(map[string]interface{})
		assert.Equal(t, models.RoleAdmin, data["role"])
		assert.Equal(t, "777888", data["telegram_chat_id"])
		assert.Equal(t, "Paco Jiménez", data["full_name"])
	})

	t.Run("bootstrap admin cannot be demoted", func(t *testing.T) {
		bootstrap := testutil.CreateUser(t, db, models.BootstrapAdminUsername, "pw", models.RoleAdmin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPut,
			fmt.Sprintf("/api/v1/admin/usuarios/%d", bootstrap.ID), gin.H{"role": models.RoleTechnician}))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "FORBIDDEN", errorCode(t, w))
	})

	t.Run("unknown user", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPut, "/api/v1/admin/usuarios/99999", gin.H{}))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestToggleUserAccount(t *testing.T) {
	db, _, _ := setupControllerTest(t)
	user := testutil.CreateUser(t, db, "paco", "pw", models.RoleTechnician)
	bootstrap := testutil.CreateUser(t, db, models.BootstrapAdminUsername, "pw", models.RoleAdmin)
	router := adminRouter()

	t.Run("deactivates and reactivates", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost,
			fmt.Sprintf("/api/v1/admin/usuarios/%d/toggle", user.ID), nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, false, decodeResponse(t, w)["data"].(map[string]interface{})["is_active"])

		w = httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost,
			fmt.Sprintf("/api/v1/admin/usuarios/%d/toggle", user.ID), nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeResponse(t, w)["data"].(map[string]interface{})["is_active"])
	})

	t.Run("bootstrap admin is protected", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost,
			fmt.Sprintf("/api/v1/admin/usuarios/%d/toggle", bootstrap.ID), nil))
		assert.Equal(t, http.StatusForbidden, w.Code)

		var reloaded models.User
		require.NoError(t, db.First(&reloaded, bootstrap.ID).Error)
		assert.True(t, reloaded.IsActive)
	})
}

func TestListUsersWithWorkload(t *testing.T) {
	db, _, _ := setupControllerTest(t)
	tech := testutil.CreateUser(t, db, "paco", "pw", models.RoleTechnician)
	testutil.CreateAviso(t, db, func(a *models.Aviso) { a.AssignedToID = &tech.ID })
	testutil.CreateAviso(t, db, func(a *models.Aviso) {
		a.AssignedToID = &tech.ID
		a.Status = models.StatusCompleted
	})

	w := httptest.NewRecorder()
	adminRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/usuarios", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].([]interface{})
	require.Len(t, data, 1)

	entry := data[0].(map[string]interface{})
	assert.EqualValues(t, 2, entry["assigned_total"])
	assert.EqualValues(t, 1, entry["assigned_open"])
}
