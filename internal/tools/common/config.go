package common

import (
	"gorm.io/gorm"

	"github.com/memberkit/credential-service/internal/config"
	"github.com/memberkit/credential-service/internal/database"
)

// LoadConfig reads envFile into the environment and loads the service config.
func LoadConfig(envFile string) (*config.Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return config.Load()
}

func LoadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// CloseDB releases the pool behind db.
func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
