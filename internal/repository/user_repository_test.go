package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/memberkit/credential-service/internal/domain"

	"gorm.io/gorm"
)

func TestUserRepositoryLookupsAndUpdates(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	u, _ := createUserForTest(t, db, "jane@example.com", "jane")

	byEmail, err := repo.FindByEmail("  JANE@example.com ")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("find by email: %+v err=%v", byEmail, err)
	}
	byName, err := repo.FindByUsername("jane")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("find by username: %+v err=%v", byName, err)
	}
	if _, err := repo.FindByUsername("nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.FindByID(999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := repo.UpdateStatus(u.ID, domain.UserStatusBanned, "spam"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := repo.UpdatePermissions(u.ID, `["forum.post"]`); err != nil {
		t.Fatalf("update permissions: %v", err)
	}
	seen := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := repo.TouchLastSeen(u.ID, seen); err != nil {
		t.Fatalf("touch last seen: %v", err)
	}
	if err := repo.SetActive(u.ID, true); err != nil {
		t.Fatalf("set active: %v", err)
	}

	loaded, err := repo.FindByID(u.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if !loaded.IsBanned() || loaded.StatusMessage != "spam" {
		t.Fatalf("unexpected status %q %q", loaded.Status, loaded.StatusMessage)
	}
	if !loaded.HasPermission("forum.post") {
		t.Fatalf("unexpected permissions %q", loaded.Permissions)
	}
	if loaded.LastSeenAt == nil || !loaded.LastSeenAt.Equal(seen) {
		t.Fatalf("unexpected last seen %v", loaded.LastSeenAt)
	}
	if !loaded.Active {
		t.Fatal("expected active user")
	}

	if err := repo.SetActive(999, true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for missing user, got %v", err)
	}
}

func TestUserRepositoryRolesAndPaging(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	roles := NewRoleRepository(db)
	if err := db.Create(&domain.Role{Name: domain.RoleAdmin}).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}

	for i := 0; i < 3; i++ {
		createUserForTest(t, db, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("u%d", i))
	}
	admin, err := roles.FindByName(domain.RoleAdmin)
	if err != nil {
		t.Fatalf("find role: %v", err)
	}
	if _, err := roles.FindByName("missing"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	if err := repo.AddRole(1, admin.ID); err != nil {
		t.Fatalf("add role: %v", err)
	}
	first, err := repo.FindByID(1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !first.IsAdmin() {
		t.Fatalf("expected admin role, got %+v", first.Roles)
	}

	page, err := repo.ListPaged(PageRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list paged: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].Username != "u2" {
		t.Fatalf("unexpected page: %+v", page)
	}
	all, err := repo.List()
	if err != nil || len(all) != 3 {
		t.Fatalf("list: %d err=%v", len(all), err)
	}
}

func TestUserRepositoryCreateAccount(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	role := domain.Role{Name: domain.RoleUser}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}

	user := &domain.User{Email: "kim@example.com", Username: "kim", Name: "kim", Status: domain.UserStatusActive}
	cred := &domain.LocalCredential{PasswordHash: "$argon2id$placeholder"}
	if err := repo.CreateAccount(user, []domain.Role{role}, cred); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if user.ID == 0 || cred.UserID != user.ID {
		t.Fatalf("expected ids to be linked, user=%d cred.user_id=%d", user.ID, cred.UserID)
	}
	loaded, err := repo.FindByID(user.ID)
	if err != nil || len(loaded.Roles) != 1 || loaded.Roles[0].Name != domain.RoleUser {
		t.Fatalf("unexpected stored account %+v err=%v", loaded, err)
	}

	cases := map[string]*domain.User{
		"same email":    {Email: "kim@example.com", Username: "kim2", Status: domain.UserStatusActive},
		"same username": {Email: "kim2@example.com", Username: "kim", Status: domain.UserStatusActive},
	}
	for name, dup := range cases {
		t.Run(name, func(t *testing.T) {
			err := repo.CreateAccount(dup, []domain.Role{role}, &domain.LocalCredential{PasswordHash: "$argon2id$placeholder"})
			if !errors.Is(err, ErrUserExists) {
				t.Fatalf("expected ErrUserExists, got %v", err)
			}
		})
	}
	if err := repo.Create(&domain.User{Email: "kim@example.com", Username: "kim3"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected plain create to report ErrUserExists, got %v", err)
	}

	var users, creds int64
	db.Model(&domain.User{}).Count(&users)
	db.Model(&domain.LocalCredential{}).Count(&creds)
	if users != 1 || creds != 1 {
		t.Fatalf("expected one user and one credential, got %d and %d", users, creds)
	}
}

func TestUserRepositoryCreateAccountRollsBackOnCredentialFailure(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	role := domain.Role{Name: domain.RoleUser}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}
	diskFull := errors.New("disk full")
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_credentials", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "local_credentials" {
			_ = tx.AddError(diskFull)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	user := &domain.User{Email: "lee@example.com", Username: "lee", Name: "lee", Active: true, Status: domain.UserStatusActive}
	cred := &domain.LocalCredential{PasswordHash: "$argon2id$placeholder"}
	if err := repo.CreateAccount(user, []domain.Role{role}, cred); !errors.Is(err, diskFull) {
		t.Fatalf("expected credential failure, got %v", err)
	}
	if user.ID != 0 {
		t.Fatalf("expected user id reset after rollback, got %d", user.ID)
	}
	if _, err := repo.FindByEmail("lee@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected no user row after rollback, got %v", err)
	}
	var links int64
	db.Table("user_roles").Count(&links)
	if links != 0 {
		t.Fatalf("expected no role links after rollback, got %d", links)
	}
}

func TestPageRequestNormalize(t *testing.T) {
	cases := []struct {
		in   PageRequest
		want PageRequest
	}{
		{PageRequest{}, PageRequest{Page: DefaultPage, PageSize: DefaultPageSize}},
		{PageRequest{Page: 3, PageSize: 500}, PageRequest{Page: 3, PageSize: MaxPageSize}},
		{PageRequest{Page: -1, PageSize: 5}, PageRequest{Page: 1, PageSize: 5}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
	if off := (PageRequest{Page: 3, PageSize: 20}).Offset(); off != 40 {
		t.Fatalf("expected offset 40, got %d", off)
	}
}

func TestNewPageResult(t *testing.T) {
	empty := NewPageResult[int](nil, PageRequest{Page: 1, PageSize: 10}, 0)
	if empty.Items == nil || empty.TotalPages != 0 {
		t.Fatalf("unexpected empty page %+v", empty)
	}
	if got := NewPageResult([]int{1}, PageRequest{Page: 2, PageSize: 10}, 11); got.TotalPages != 2 || got.Page != 2 {
		t.Fatalf("unexpected page %+v", got)
	}
}

func TestUserRepositorySaveSettingUpserts(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	u, _ := createUserForTest(t, db, "set@example.com", "setter")

	if err := repo.SaveSetting(&domain.UserSetting{UserID: u.ID, Location: "Lyon", Country: "FR", DOBDisplay: domain.DOBDisplayNone}); err != nil {
		t.Fatalf("save setting: %v", err)
	}
	if err := repo.SaveSetting(&domain.UserSetting{UserID: u.ID, Location: "Paris", Country: "FR", DOBDisplay: domain.DOBDisplayAge}); err != nil {
		t.Fatalf("save setting again: %v", err)
	}
	loaded, err := repo.FindByUsername("setter")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if loaded.Setting == nil || loaded.Setting.Location != "Paris" || loaded.Setting.DOBDisplay != domain.DOBDisplayAge {
		t.Fatalf("unexpected setting %+v", loaded.Setting)
	}
	if loaded.LocationString() != "Paris, France" {
		t.Fatalf("unexpected location string %q", loaded.LocationString())
	}
}
