package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memberkit/credential-service/internal/domain"
	repogomock "github.com/memberkit/credential-service/internal/repository/gomock"
	"go.uber.org/mock/gomock"
)

func TestUserServiceGetByID(t *testing.T) {
	t.Run("repo error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := repogomock.NewMockUserRepository(ctrl)
		expected := errors.New("db down")
		repo.EXPECT().FindByID(uint(1)).Return(nil, expected)
		svc := NewUserService(repo)

		u, err := svc.GetByID(1)
		if !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
		if u != nil {
			t.Fatal("expected nil user on error")
		}
	})

	t.Run("not found maps to service error", func(t *testing.T) {
		fx := newAccountFixture(t)
		if _, err := fx.users.GetByID(42); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserServiceProfileSections(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)
	user := fx.registerActive(t, "sam@example.com", "sam", "CorrectHorse1")
	seen := time.Date(2026, 4, 30, 8, 0, 0, 0, time.UTC)
	fx.userRepo.byID[user.ID].LastSeenAt = &seen

	overview, err := fx.users.Profile(ctx, "sam", "")
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Section != ProfileSectionOverview || overview.ProfilePath != "/members/sam" || overview.LastSeenAt != nil {
		t.Fatalf("unexpected overview %+v", overview)
	}
	if overview.Avatar == "" || len(overview.Roles) != 1 {
		t.Fatalf("expected avatar and roles in overview, got %+v", overview)
	}

	activity, err := fx.users.Profile(ctx, "sam", "Activity")
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if activity.LastSeenAt == nil || !activity.LastSeenAt.Equal(seen) || activity.Roles != nil {
		t.Fatalf("unexpected activity view %+v", activity)
	}

	if _, err := fx.users.Profile(ctx, "sam", "settings"); !errors.Is(err, ErrProfileSectionNotFound) {
		t.Fatalf("expected ErrProfileSectionNotFound, got %v", err)
	}
	if _, err := fx.users.Profile(ctx, "nobody", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceProfileHidesBannedAndInactive(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)
	banned := fx.registerActive(t, "tom@example.com", "tom", "CorrectHorse1")
	if _, err := fx.accounts.Ban(ctx, banned.ID, "spam"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	fx.register(t, "uma@example.com", "uma", "CorrectHorse1")

	for _, username := range []string{"tom", "uma"} {
		if _, err := fx.users.Profile(ctx, username, ProfileSectionOverview); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected %s hidden, got %v", username, err)
		}
	}
}

func TestUserServiceUpdateAccountAndBirthDateDisplay(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)
	user := fx.registerActive(t, "vera@example.com", "vera", "CorrectHorse1")

	name := "Vera Lynn"
	avatar := "https://cdn.example.com/vera.png"
	location := "Portland"
	country := "us"
	dob := "1990-06-15"
	both := int(domain.DOBDisplayBoth)
	updated, err := fx.users.UpdateAccount(ctx, user.ID, AccountUpdate{
		Name: &name, AvatarURL: &avatar, Location: &location, Country: &country, DateOfBirth: &dob, DOBDisplay: &both,
	})
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if updated.Name != name || updated.Avatar(80) != avatar || updated.Setting == nil || updated.Setting.Country != "US" {
		t.Fatalf("unexpected updated user %+v", updated)
	}

	profile, err := fx.users.Profile(ctx, "vera", "")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Location != "Portland, United States" {
		t.Fatalf("unexpected location %q", profile.Location)
	}
	if profile.BirthDate != "1990-06-15" || profile.Age == nil || *profile.Age != 35 {
		t.Fatalf("expected birth date and age 35, got %q %v", profile.BirthDate, profile.Age)
	}

	ageOnly := int(domain.DOBDisplayAge)
	if _, err := fx.users.UpdateAccount(ctx, user.ID, AccountUpdate{DOBDisplay: &ageOnly}); err != nil {
		t.Fatalf("update display: %v", err)
	}
	profile, _ = fx.users.Profile(ctx, "vera", "")
	if profile.BirthDate != "" || profile.Age == nil {
		t.Fatalf("expected age only, got %q %v", profile.BirthDate, profile.Age)
	}

	hidden := int(domain.DOBDisplayNone)
	if _, err := fx.users.UpdateAccount(ctx, user.ID, AccountUpdate{DOBDisplay: &hidden}); err != nil {
		t.Fatalf("update display: %v", err)
	}
	profile, _ = fx.users.Profile(ctx, "vera", "")
	if profile.BirthDate != "" || profile.Age != nil {
		t.Fatalf("expected birth date hidden, got %q %v", profile.BirthDate, profile.Age)
	}
}

func TestUserServiceUpdateAccountValidation(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	cases := map[string]AccountUpdate{
		"blank name":        {Name: str("   ")},
		"relative avatar":   {AvatarURL: str("/avatar.png")},
		"ftp avatar":        {AvatarURL: str("ftp://example.com/a.png")},
		"unknown country":   {Country: str("QQ")},
		"long country":      {Country: str("USA")},
		"bad date":          {DateOfBirth: str("15/06/1990")},
		"future birth date": {DateOfBirth: str("2030-01-01")},
		"bad dob display":   {DOBDisplay: num(9)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newAccountFixture(t)
			user := fx.registerActive(t, "will@example.com", "will", "CorrectHorse1")
			if _, err := fx.users.UpdateAccount(context.Background(), user.ID, in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		fx := newAccountFixture(t)
		if _, err := fx.users.UpdateAccount(context.Background(), 77, AccountUpdate{Name: str("x")}); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("clearing optional fields", func(t *testing.T) {
		fx := newAccountFixture(t)
		user := fx.registerActive(t, "xena@example.com", "xena", "CorrectHorse1")
		if _, err := fx.users.UpdateAccount(context.Background(), user.ID, AccountUpdate{DateOfBirth: str("1990-01-01"), Country: str("FR")}); err != nil {
			t.Fatalf("set: %v", err)
		}
		updated, err := fx.users.UpdateAccount(context.Background(), user.ID, AccountUpdate{DateOfBirth: str(""), Country: str(""), AvatarURL: str("")})
		if err != nil {
			t.Fatalf("clear: %v", err)
		}
		if updated.Setting.DateOfBirth != nil || updated.Setting.Country != "" || updated.AvatarURL != "" {
			t.Fatalf("expected fields cleared, got %+v", updated.Setting)
		}
	})
}

func TestUserServiceListPages(t *testing.T) {
	fx := newAccountFixture(t)
	for _, name := range []string{"ann", "ben", "cat"} {
		fx.register(t, name+"@example.com", name, "CorrectHorse1")
	}
	page, err := fx.users.List(2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].Username != "cat" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestUserServiceProfileCache(t *testing.T) {
	ctx := context.Background()
	fx := newAccountFixture(t)
	store := NewInMemoryProfileCacheStore()
	store.now = fx.clock.Now
	fx.users.WithProfileCache(store, time.Minute, nil)
	fx.accounts.WithProfileCache(store)
	user := fx.registerActive(t, "yara@example.com", "yara", "CorrectHorse1")

	if _, err := fx.users.Profile(ctx, "yara", ""); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "yara", ProfileSectionOverview); !ok {
		t.Fatal("expected overview to be cached")
	}

	name := "Yara Stone"
	if _, err := fx.users.UpdateAccount(ctx, user.ID, AccountUpdate{Name: &name}); err != nil {
		t.Fatalf("update: %v", err)
	}
	profile, err := fx.users.Profile(ctx, "yara", "")
	if err != nil {
		t.Fatalf("profile after update: %v", err)
	}
	if profile.Name != name {
		t.Fatalf("expected fresh profile after update, got %q", profile.Name)
	}

	if _, err := fx.accounts.Ban(ctx, user.ID, "spam"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if _, err := fx.users.Profile(ctx, "yara", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected banned member hidden despite cache, got %v", err)
	}
}
