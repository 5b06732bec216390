package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/observability"

	"gorm.io/gorm"
)

const bootstrapAdminUsername = "admin"

var defaultRoles = []domain.Role{
	{Name: domain.RoleUser, Description: "Default member role"},
	{Name: domain.RoleAdmin, Description: "Moderation and account administration"},
	{Name: domain.RoleSuperadmin, Description: "Full administrative access"},
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	Hasher        PasswordHasher
}

type SeedReport struct {
	CreatedRoles int  `json:"created_roles"`
	CreatedAdmin bool `json:"created_admin"`
	BoundAdmin   bool `json:"bound_admin"`
	Noop         bool `json:"noop"`
}

func Seed(db *gorm.DB, opts SeedOptions) error {
	_, err := SeedSync(db, opts)
	return err
}

// SeedSync makes sure the default roles exist and that the bootstrap admin,
// when configured, holds the admin role. An unknown admin email is created
// only when a password is supplied. Repeated runs are no-ops.
func SeedSync(db *gorm.DB, opts SeedOptions) (*SeedReport, error) {
	ctx := context.Background()
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report, err := seed(db, opts)
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}
	report.Noop = report.CreatedRoles == 0 && !report.CreatedAdmin && !report.BoundAdmin
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}

func seed(db *gorm.DB, opts SeedOptions) (*SeedReport, error) {
	report := &SeedReport{}
	roles := make(map[string]domain.Role, len(defaultRoles))
	for _, r := range defaultRoles {
		role := r
		res := db.Where("name = ?", role.Name).FirstOrCreate(&role)
		if res.Error != nil {
			return nil, fmt.Errorf("seed role %s: %w", role.Name, res.Error)
		}
		if res.RowsAffected > 0 {
			report.CreatedRoles++
		}
		roles[role.Name] = role
	}

	email := strings.TrimSpace(strings.ToLower(opts.AdminEmail))
	if email == "" {
		return report, nil
	}
	adminRole := roles[domain.RoleAdmin]

	var u domain.User
	err := db.Where("email = ?", email).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if opts.AdminPassword == "" {
			return report, nil
		}
		if opts.Hasher == nil {
			return nil, errors.New("seed bootstrap admin: password hasher is required")
		}
		if err := createBootstrapAdmin(db, email, opts, roles); err != nil {
			return nil, err
		}
		report.CreatedAdmin = true
		return report, nil
	case err != nil:
		return nil, fmt.Errorf("find bootstrap admin: %w", err)
	}

	var count int64
	if err := db.Table("user_roles").Where("user_id = ? AND role_id = ?", u.ID, adminRole.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check bootstrap admin role: %w", err)
	}
	if count == 0 {
		if err := db.Model(&u).Association("Roles").Append(&adminRole); err != nil {
			return nil, fmt.Errorf("assign bootstrap admin role: %w", err)
		}
		report.BoundAdmin = true
	}
	return report, nil
}

func createBootstrapAdmin(db *gorm.DB, email string, opts SeedOptions, roles map[string]domain.Role) error {
	hash, err := opts.Hasher.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}
	username := bootstrapAdminUsername
	var taken int64
	if err := db.Model(&domain.User{}).Where("username = ?", username).Count(&taken).Error; err != nil {
		return fmt.Errorf("check bootstrap admin username: %w", err)
	}
	if taken > 0 {
		username = fmt.Sprintf("%s-%d", bootstrapAdminUsername, time.Now().Unix())
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := &domain.User{
			Email:    email,
			Username: username,
			Name:     "Administrator",
			Active:   true,
			Status:   domain.UserStatusActive,
			Roles:    []domain.Role{roles[domain.RoleUser], roles[domain.RoleAdmin]},
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create bootstrap admin: %w", err)
		}
		cred := &domain.LocalCredential{UserID: user.ID}
		cred.SetPasswordHash(hash, time.Now())
		if err := tx.Create(cred).Error; err != nil {
			return fmt.Errorf("create bootstrap admin credential: %w", err)
		}
		return nil
	})
}

// ActivateEmail marks the account for email active and clears any pending
// activation token. It backs the seed tool's activate command.
func ActivateEmail(db *gorm.DB, email string) error {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return fmt.Errorf("email is required")
	}
	var u domain.User
	if err := db.Where("email = ?", normalized).First(&u).Error; err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.User{}).Where("id = ?", u.ID).Update("active", true).Error; err != nil {
			return err
		}
		return tx.Model(&domain.LocalCredential{}).Where("user_id = ?", u.ID).
			Updates(map[string]any{"activate_hash": nil, "activate_started_at": nil}).Error
	})
}
