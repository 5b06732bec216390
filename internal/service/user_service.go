package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/repository"
	"golang.org/x/sync/singleflight"
)

const (
	ProfileSectionOverview = "overview"
	ProfileSectionActivity = "activity"

	maxNameLength     = 100
	maxLocationLength = 255
	dateLayout        = "2006-01-02"
)

var ErrProfileSectionNotFound = errors.New("profile section not found")

// MemberProfile is the public view of a member. Private fields such as email,
// permissions and ban reason never appear here.
type MemberProfile struct {
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar"`
	ProfilePath string     `json:"profile_path"`
	Section     string     `json:"section"`
	Roles       []string   `json:"roles,omitempty"`
	Location    string     `json:"location,omitempty"`
	Age         *int       `json:"age,omitempty"`
	BirthDate   string     `json:"birth_date,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

// AccountUpdate carries the editable account fields. Nil pointers are left
// unchanged.
type AccountUpdate struct {
	Name        *string `json:"name"`
	AvatarURL   *string `json:"avatar_url"`
	Location    *string `json:"location"`
	Country     *string `json:"country"`
	DateOfBirth *string `json:"date_of_birth"`
	DOBDisplay  *int    `json:"dob_display"`
}

type UserService struct {
	userRepo repository.UserRepository
	cache    ProfileCacheStore
	cacheTTL time.Duration
	sf       singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		cache:    NewNoopProfileCacheStore(),
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// WithProfileCache enables caching of rendered member profiles.
func (s *UserService) WithProfileCache(store ProfileCacheStore, ttl time.Duration, logger *slog.Logger) *UserService {
	if store != nil {
		s.cache = store
	}
	s.cacheTTL = ttl
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *UserService) GetByID(id uint) (*domain.User, error) {
	u, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) List(page, pageSize int) (repository.PageResult[domain.User], error) {
	return s.userRepo.ListPaged(repository.PageRequest{Page: page, PageSize: pageSize})
}

// Profile builds the public member page. Banned and inactive members are
// reported as not found.
func (s *UserService) Profile(ctx context.Context, username, section string) (*MemberProfile, error) {
	section = strings.ToLower(strings.TrimSpace(section))
	if section == "" {
		section = ProfileSectionOverview
	}
	if section != ProfileSectionOverview && section != ProfileSectionActivity {
		observability.RecordMemberProfileEvent(ctx, "unknown", "not_found")
		return nil, ErrProfileSectionNotFound
	}
	username = strings.TrimSpace(username)
	if s.cacheTTL <= 0 {
		return s.loadProfile(ctx, username, section)
	}
	if cached, ok := loadCachedProfile(ctx, s.cache, s.logger, username, section); ok {
		observability.RecordMemberProfileEvent(ctx, section, "cache_hit")
		return cached, nil
	}

	result, err, _ := s.sf.Do(normalizeCacheMember(username)+":"+section, func() (interface{}, error) {
		profile, err := s.loadProfile(ctx, username, section)
		if err != nil {
			return nil, err
		}
		storeCachedProfile(ctx, s.cache, s.logger, profile, s.cacheTTL)
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	profile, ok := result.(*MemberProfile)
	if !ok {
		return nil, fmt.Errorf("invalid profile result type")
	}
	copied := *profile
	return &copied, nil
}

func (s *UserService) loadProfile(ctx context.Context, username, section string) (*MemberProfile, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordMemberProfileEvent(ctx, section, "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordMemberProfileEvent(ctx, section, "error")
		return nil, err
	}
	if user.IsBanned() || !user.IsActivated() {
		observability.RecordMemberProfileEvent(ctx, section, "hidden")
		return nil, ErrUserNotFound
	}

	profile := &MemberProfile{
		Username:    user.Username,
		Name:        user.Name,
		Avatar:      user.Avatar(0),
		ProfilePath: user.ProfilePath(),
		Section:     section,
		JoinedAt:    user.CreatedAt,
	}
	switch section {
	case ProfileSectionOverview:
		profile.Roles = user.RoleNames()
		profile.Location = user.LocationString()
		s.applyBirthDate(profile, user.Setting)
	case ProfileSectionActivity:
		profile.LastSeenAt = user.LastSeenAt
	}
	observability.RecordMemberProfileEvent(ctx, section, "found")
	return profile, nil
}

func (s *UserService) applyBirthDate(profile *MemberProfile, setting *domain.UserSetting) {
	if setting == nil || setting.DateOfBirth == nil {
		return
	}
	switch setting.DOBDisplay {
	case domain.DOBDisplayBoth:
		profile.BirthDate = setting.DateOfBirth.UTC().Format(dateLayout)
		age := setting.Age(s.now())
		profile.Age = &age
	case domain.DOBDisplayAge:
		age := setting.Age(s.now())
		profile.Age = &age
	}
}

// UpdateAccount applies the owner's edits to their account and settings.
func (s *UserService) UpdateAccount(ctx context.Context, userID uint, in AccountUpdate) (*domain.User, error) {
	ctx, span := observability.StartSpan(ctx, "account.update")
	user, err := s.updateAccount(userID, in)
	if err == nil {
		invalidateCachedProfile(ctx, s.cache, s.logger, user.Username)
	}
	observability.EndSpan(span, err)
	observability.RecordAccountFlow(ctx, "update_account", flowOutcome(err))
	return user, err
}

func (s *UserService) updateAccount(userID uint, in AccountUpdate) (*domain.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil || in.AvatarURL != nil {
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" || len([]rune(name)) > maxNameLength {
				return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxNameLength)
			}
			user.Name = name
		}
		if in.AvatarURL != nil {
			avatar := strings.TrimSpace(*in.AvatarURL)
			if err := validateAvatarURL(avatar); err != nil {
				return nil, err
			}
			user.AvatarURL = avatar
		}
		if err := s.userRepo.Update(user); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	if in.Location != nil || in.Country != nil || in.DateOfBirth != nil || in.DOBDisplay != nil {
		setting := user.Setting
		if setting == nil {
			setting = &domain.UserSetting{UserID: user.ID, DOBDisplay: domain.DOBDisplayNone}
		}
		if err := s.applySettings(setting, in); err != nil {
			return nil, err
		}
		if err := s.userRepo.SaveSetting(setting); err != nil {
			return nil, fmt.Errorf("save settings: %w", err)
		}
		user.Setting = setting
	}
	return user, nil
}

func (s *UserService) applySettings(setting *domain.UserSetting, in AccountUpdate) error {
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		if len(loc) > maxLocationLength {
			return fmt.Errorf("%w: location must be at most %d characters", ErrInvalidInput, maxLocationLength)
		}
		setting.Location = loc
	}
	if in.Country != nil {
		code := strings.ToUpper(strings.TrimSpace(*in.Country))
		if code != "" && (len(code) != 2 || domain.CountryName(code) == "") {
			return fmt.Errorf("%w: unknown country code %q", ErrInvalidInput, code)
		}
		setting.Country = code
	}
	if in.DateOfBirth != nil {
		raw := strings.TrimSpace(*in.DateOfBirth)
		if raw == "" {
			setting.DateOfBirth = nil
		} else {
			dob, err := time.Parse(dateLayout, raw)
			if err != nil {
				return fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalidInput)
			}
			if !dob.Before(s.now().UTC()) {
				return fmt.Errorf("%w: date_of_birth must be in the past", ErrInvalidInput)
			}
			setting.DateOfBirth = &dob
		}
	}
	if in.DOBDisplay != nil {
		display := domain.DOBDisplay(*in.DOBDisplay)
		if !display.Valid() {
			return fmt.Errorf("%w: dob_display must be 1, 2 or 3", ErrInvalidInput)
		}
		setting.DOBDisplay = display
	}
	return nil
}

func validateAvatarURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: avatar_url must be an absolute http(s) url", ErrInvalidInput)
	}
	return nil
}
