package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/memberkit/credential-service/internal/domain"
)

// credentialTables must exist before the service can authenticate anyone.
var credentialTables = []any{&domain.User{}, &domain.LocalCredential{}}

// DBChecker pings the database and confirms the credential schema is migrated.
type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	return result("db", c.check(ctx))
}

func (c *DBChecker) check(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	migrator := c.db.WithContext(ctx).Migrator()
	for _, model := range credentialTables {
		if !migrator.HasTable(model) {
			return fmt.Errorf("table for %T missing, run migrate up", model)
		}
	}
	return nil
}

// RedisChecker pings the redis instance backing the abuse guard, rate
// limiters and profile cache.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	return result("redis", c.client.Ping(ctx).Err())
}

func result(name string, err error) CheckResult {
	if err != nil {
		return CheckResult{Name: name, Error: err.Error()}
	}
	return CheckResult{Name: name, Healthy: true}
}
