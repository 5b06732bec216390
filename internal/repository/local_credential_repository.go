package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/memberkit/credential-service/internal/domain"

	"gorm.io/gorm"
)

var (
	ErrCredentialNotFound   = errors.New("local credential not found")
	ErrTokenAlreadyConsumed = errors.New("token already consumed")
)

type LocalCredentialRepository interface {
	Create(credential *domain.LocalCredential) error
	FindByUserID(userID uint) (*domain.LocalCredential, error)
	FindByEmail(email string) (*domain.LocalCredential, error)
	UpdatePassword(userID uint, newHash string) error
	SetResetToken(userID uint, token string, issuedAt time.Time) error
	ConsumeResetToken(userID uint, token, newHash string) error
	SetActivationToken(userID uint, token string, issuedAt time.Time) error
	ConsumeActivationToken(userID uint, token string) error
}

type GormLocalCredentialRepository struct {
	db *gorm.DB
}

func NewLocalCredentialRepository(db *gorm.DB) LocalCredentialRepository {
	return &GormLocalCredentialRepository{db: db}
}

func (r *GormLocalCredentialRepository) Create(credential *domain.LocalCredential) error {
	return r.db.Create(credential).Error
}

func (r *GormLocalCredentialRepository) FindByUserID(userID uint) (*domain.LocalCredential, error) {
	var c domain.LocalCredential
	if err := r.db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, mapCredentialErr(err)
	}
	return &c, nil
}

func (r *GormLocalCredentialRepository) FindByEmail(email string) (*domain.LocalCredential, error) {
	var c domain.LocalCredential
	normalized := strings.TrimSpace(strings.ToLower(email))
	err := r.db.
		Joins("JOIN users ON users.id = local_credentials.user_id").
		Where("users.email = ?", normalized).
		First(&c).Error
	if err != nil {
		return nil, mapCredentialErr(err)
	}
	return &c, nil
}

func (r *GormLocalCredentialRepository) UpdatePassword(userID uint, newHash string) error {
	now := time.Now().UTC()
	res := r.db.Model(&domain.LocalCredential{}).Where("user_id = ?", userID).
		Updates(map[string]any{"password_hash": newHash, "password_changed_at": now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// SetResetToken overwrites any previous reset token for the user.
func (r *GormLocalCredentialRepository) SetResetToken(userID uint, token string, issuedAt time.Time) error {
	res := r.db.Model(&domain.LocalCredential{}).Where("user_id = ?", userID).
		Updates(map[string]any{"reset_hash": token, "reset_started_at": issuedAt.UTC(), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// ConsumeResetToken stores newHash and clears the reset token only if token is
// still the stored one. A concurrent consumer that loses the race gets
// ErrTokenAlreadyConsumed.
func (r *GormLocalCredentialRepository) ConsumeResetToken(userID uint, token, newHash string) error {
	now := time.Now().UTC()
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.LocalCredential{}).
			Where("user_id = ? AND reset_hash = ?", userID, token).
			Updates(map[string]any{
				"password_hash":       newHash,
				"password_changed_at": now,
				"reset_hash":          gorm.Expr("NULL"),
				"reset_started_at":    gorm.Expr("NULL"),
				"updated_at":          now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenAlreadyConsumed
		}
		return tx.Model(&domain.User{}).Where("id = ?", userID).
			Updates(map[string]any{"force_pass_reset": false, "updated_at": now}).Error
	})
}

func (r *GormLocalCredentialRepository) SetActivationToken(userID uint, token string, issuedAt time.Time) error {
	res := r.db.Model(&domain.LocalCredential{}).Where("user_id = ?", userID).
		Updates(map[string]any{"activate_hash": token, "activate_started_at": issuedAt.UTC(), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func (r *GormLocalCredentialRepository) ConsumeActivationToken(userID uint, token string) error {
	now := time.Now().UTC()
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.LocalCredential{}).
			Where("user_id = ? AND activate_hash = ? AND password_hash <> ''", userID, token).
			Updates(map[string]any{"activate_hash": gorm.Expr("NULL"), "activate_started_at": gorm.Expr("NULL"), "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenAlreadyConsumed
		}
		return tx.Model(&domain.User{}).Where("id = ?", userID).
			Updates(map[string]any{"active": true, "updated_at": now}).Error
	})
}

func mapCredentialErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCredentialNotFound
	}
	return err
}
