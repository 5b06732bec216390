package database

import (
	"context"
	"fmt"
	"time"

	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/observability"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	start := time.Now()
	err := db.AutoMigrate(
		&domain.Role{},
		&domain.User{},
		&domain.UserSetting{},
		&domain.LocalCredential{},
	)
	observability.RecordDatabaseStartupDuration(context.Background(), "migrate", time.Since(start))
	if err != nil {
		observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "error")
		return fmt.Errorf("auto migrate: %w", err)
	}
	observability.RecordDatabaseStartupEvent(context.Background(), "migrate", "success")
	return nil
}
