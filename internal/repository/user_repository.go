package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/memberkit/credential-service/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type UserRepository interface {
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	FindByUsername(username string) (*domain.User, error)
	Create(user *domain.User) error
	CreateAccount(user *domain.User, roles []domain.Role, credential *domain.LocalCredential) error
	Update(user *domain.User) error
	UpdateStatus(id uint, status, message string) error
	UpdatePermissions(id uint, permissions string) error
	TouchLastSeen(id uint, at time.Time) error
	SetActive(id uint, active bool) error
	AddRole(userID, roleID uint) error
	SaveSetting(setting *domain.UserSetting) error
	List() ([]domain.User, error)
	ListPaged(req PageRequest) (PageResult[domain.User], error)
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var u domain.User
	if err := r.db.Preload("Roles").Preload("Setting").First(&u, id).Error; err != nil {
		return nil, mapUserErr(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*domain.User, error) {
	var u domain.User
	normalized := strings.TrimSpace(strings.ToLower(email))
	if err := r.db.Preload("Roles").Preload("Setting").Where("email = ?", normalized).First(&u).Error; err != nil {
		return nil, mapUserErr(err)
	}
	return &u, nil
}

func (r *GormUserRepository) FindByUsername(username string) (*domain.User, error) {
	var u domain.User
	if err := r.db.Preload("Roles").Preload("Setting").Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		return nil, mapUserErr(err)
	}
	return &u, nil
}

func (r *GormUserRepository) Create(user *domain.User) error {
	return mapDuplicateErr(r.db.Create(user).Error)
}

// CreateAccount inserts the user, its roles and its credential in one
// transaction. A unique email or username clash is reported as ErrUserExists.
func (r *GormUserRepository) CreateAccount(user *domain.User, roles []domain.Role, credential *domain.LocalCredential) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Roles", "Setting").Create(user).Error; err != nil {
			return err
		}
		if len(roles) > 0 {
			if err := tx.Model(user).Association("Roles").Append(roles); err != nil {
				return err
			}
		}
		credential.UserID = user.ID
		return tx.Create(credential).Error
	})
	if err != nil {
		user.ID = 0
		user.Roles = nil
		credential.UserID = 0
		credential.ID = 0
	}
	return mapDuplicateErr(err)
}
func (r *GormUserRepository) Update(user *domain.User) error {
	return r.db.Omit("Roles", "Setting").Save(user).Error
}

func (r *GormUserRepository) UpdateStatus(id uint, status, message string) error {
	return r.updateColumns(id, map[string]any{"status": status, "status_message": message})
}

func (r *GormUserRepository) UpdatePermissions(id uint, permissions string) error {
	return r.updateColumns(id, map[string]any{"permissions": permissions})
}

func (r *GormUserRepository) TouchLastSeen(id uint, at time.Time) error {
	return r.updateColumns(id, map[string]any{"last_seen_at": at.UTC()})
}

func (r *GormUserRepository) SetActive(id uint, active bool) error {
	return r.updateColumns(id, map[string]any{"active": active})
}

func (r *GormUserRepository) AddRole(userID, roleID uint) error {
	u := domain.User{ID: userID}
	role := domain.Role{ID: roleID}
	return r.db.Model(&u).Association("Roles").Append(&role)
}

// SaveSetting inserts or replaces the settings row keyed by user id.
func (r *GormUserRepository) SaveSetting(setting *domain.UserSetting) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"location", "country", "date_of_birth", "dob_display", "updated_at"}),
	}).Create(setting).Error
}

func (r *GormUserRepository) List() ([]domain.User, error) {
	var users []domain.User
	err := r.db.Preload("Roles").Order("id asc").Find(&users).Error
	return users, err
}

func (r *GormUserRepository) ListPaged(req PageRequest) (PageResult[domain.User], error) {
	norm := req.Normalize()
	var total int64
	if err := r.db.Model(&domain.User{}).Count(&total).Error; err != nil {
		return PageResult[domain.User]{}, err
	}
	var users []domain.User
	err := r.db.Preload("Roles").
		Order("id asc").
		Offset(norm.Offset()).
		Limit(norm.PageSize).
		Find(&users).Error
	if err != nil {
		return PageResult[domain.User]{}, err
	}
	return NewPageResult(users, norm, total), nil
}

func (r *GormUserRepository) updateColumns(id uint, cols map[string]any) error {
	cols["updated_at"] = time.Now().UTC()
	res := r.db.Model(&domain.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func mapUserErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func mapDuplicateErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}
