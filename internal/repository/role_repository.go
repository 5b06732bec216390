package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/memberkit/credential-service/internal/domain"

	"gorm.io/gorm"
)

var ErrRoleNotFound = errors.New("role not found")

// RoleRepository reads the seeded role catalogue. Roles are created by the
// seed step only.
type RoleRepository interface {
	FindByName(name string) (*domain.Role, error)
	FindByNames(names []string) ([]domain.Role, error)
}

type GormRoleRepository struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &GormRoleRepository{db: db} }

func (r *GormRoleRepository) FindByName(name string) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindByNames loads roles in the order the names were given. The roles that
// exist are returned even when some are missing, together with an error
// wrapping ErrRoleNotFound that names the missing ones.
func (r *GormRoleRepository) FindByNames(names []string) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var found []domain.Role
	if err := r.db.Where("name IN ?", names).Find(&found).Error; err != nil {
		return nil, err
	}
	return orderRoles(names, found)
}

func orderRoles(names []string, found []domain.Role) ([]domain.Role, error) {
	byName := make(map[string]domain.Role, len(found))
	for _, role := range found {
		byName[role.Name] = role
	}
	out := make([]domain.Role, 0, len(names))
	var missing []string
	for _, name := range names {
		role, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		out = append(out, role)
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("%w: %s", ErrRoleNotFound, strings.Join(missing, ", "))
	}
	return out, nil
}
