package repository

import (
	"errors"
	"strings"
	"testing"

	"github.com/memberkit/credential-service/internal/domain"
)

func TestRoleRepositoryFindByNames(t *testing.T) {
	db := newRepositoryDBForTest(t)
	for _, name := range []string{domain.RoleSuperadmin, domain.RoleUser} {
		if err := db.Create(&domain.Role{Name: name}).Error; err != nil {
			t.Fatalf("create role %s: %v", name, err)
		}
	}
	roles := NewRoleRepository(db)

	got, err := roles.FindByNames([]string{domain.RoleUser, domain.RoleSuperadmin})
	if err != nil {
		t.Fatalf("find roles: %v", err)
	}
	if len(got) != 2 || got[0].Name != domain.RoleUser || got[1].Name != domain.RoleSuperadmin {
		t.Fatalf("expected request order, got %+v", got)
	}

	got, err = roles.FindByNames([]string{domain.RoleUser, domain.RoleAdmin})
	if !errors.Is(err, ErrRoleNotFound) || !strings.Contains(err.Error(), domain.RoleAdmin) {
		t.Fatalf("expected missing admin role error, got %v", err)
	}
	if len(got) != 1 || got[0].Name != domain.RoleUser {
		t.Fatalf("expected existing roles alongside the error, got %+v", got)
	}

	if got, err := roles.FindByNames(nil); err != nil || got != nil {
		t.Fatalf("expected empty lookup to be a no-op, got %v %v", got, err)
	}
}
