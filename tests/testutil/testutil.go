package testutil

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cadiz-tecnico/avisos-api/models"
)

// OpenDB opens an isolated in-memory database with the full schema migrated.
// Each call returns a fresh database, so tests never share state.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Aviso{}, &models.Photo{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts an active account with a bcrypt hash of the password.
func CreateUser(t *testing.T, db *gorm.DB, username, password, role string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %q: %v", username, err)
	}
	return user
}

// CreateAviso inserts a minimal aviso dated today and applies the given
// mutations before saving.
func CreateAviso(t *testing.T, db *gorm.DB, mutate ...func(*models.Aviso)) *models.Aviso {
	t.Helper()

	aviso := &models.Aviso{
		CustomerName:     "Cliente Prueba",
		Phone:            "600000000",
		Street:           "Calle Falsa 123",
		City:             "Cádiz",
		Appliance:        "Lavadora",
		Status:           models.StatusPending,
		CollectionStatus: models.CollectionPending,
		RequestDate:      models.DateOnly(time.Now()),
	}
	for _, m := range mutate {
		m(aviso)
	}
	if err := db.Create(aviso).Error; err != nil {
		t.Fatalf("Failed to create aviso: %v", err)
	}
	return aviso
}

// FloatPtr returns a pointer to v, for the optional billing fields.
func FloatPtr(v float64) *float64 { return &v }

// StrPtr returns a pointer to s.
func StrPtr(s string) *string { return &s }
