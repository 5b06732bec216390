package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memberkit/credential-service/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite:"

// Open connects using DATABASE_URL. A "sqlite:" prefix selects the sqlite
// driver with the remainder as its DSN; anything else is handed to postgres.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if strings.HasPrefix(cfg.DatabaseURL, sqliteScheme) {
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func dialectorFor(url string) (gorm.Dialector, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return nil, errors.New("DATABASE_URL is required")
	case strings.HasPrefix(url, sqliteScheme):
		dsn := strings.TrimPrefix(url, sqliteScheme)
		if dsn == "" {
			return nil, errors.New("sqlite DATABASE_URL needs a dsn after \"sqlite:\"")
		}
		return sqlite.Open(dsn), nil
	default:
		return postgres.Open(url), nil
	}
}
