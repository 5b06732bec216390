package repository

import (
	"fmt"
	"strings"
	"testing"

	"github.com/memberkit/credential-service/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Role{}, &domain.User{}, &domain.UserSetting{}, &domain.LocalCredential{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createUserForTest(t *testing.T, db *gorm.DB, email, username string) (*domain.User, *domain.LocalCredential) {
	t.Helper()
	u := &domain.User{Email: email, Username: username, Name: username, Status: domain.UserStatusActive}
	if err := NewUserRepository(db).Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	c := &domain.LocalCredential{UserID: u.ID, PasswordHash: "$argon2id$placeholder"}
	if err := NewLocalCredentialRepository(db).Create(c); err != nil {
		t.Fatalf("create credential: %v", err)
	}
	return u, c
}
