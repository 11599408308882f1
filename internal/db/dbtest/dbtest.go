package dbtest

import (
	"path/filepath"
	"socialwall/internal/db"
	"socialwall/internal/models"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open opens a migrated sqlite database in a per-test temp directory.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_fk=1&_busy_timeout=5000"
	conn, err := db.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return conn
}

// CreateUser inserts a user named first with a throwaway password hash.
func CreateUser(t testing.TB, conn *gorm.DB, first string) *models.User {
	t.Helper()
	user := models.User{
		FirstName: first,
		LastName:  "Test",
		Email:     strings.ToLower(first) + "@example.com",
		Password:  "x",
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", first, err)
	}
	return &user
}
