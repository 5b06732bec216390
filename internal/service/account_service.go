package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/memberkit/credential-service/internal/config"
	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/repository"
	"github.com/memberkit/credential-service/internal/security"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrWeakPassword        = errors.New("password does not meet policy requirements")
	ErrPasswordUnchanged   = errors.New("new password must differ from current password")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrAccountBanned       = errors.New("account is banned")
	ErrAccountNotActivated = errors.New("account is not activated")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrUserNotFound        = errors.New("user not found")
	ErrLoginThrottled      = errors.New("too many attempts")
)

const (
	defaultPasswordMinLength  = 8
	maxPasswordBytes          = 4096
	timingPasswordPlaceholder = "placeholder-password-for-unknown-accounts"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9._-]{3,30}$`)

// BannedError is returned by Login for banned accounts and carries the reason
// an admin recorded.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string {
	if e.Reason == "" {
		return ErrAccountBanned.Error()
	}
	return ErrAccountBanned.Error() + ": " + e.Reason
}

func (e *BannedError) Unwrap() error { return ErrAccountBanned }

type RegisterInput struct {
	Email    string
	Username string
	Name     string
	Password string
}

type RegisterResult struct {
	User               *domain.User `json:"user"`
	ActivationRequired bool         `json:"activation_required"`
}

type LoginResult struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

type AccountService struct {
	cfg      *config.Config
	hasher   *security.PasswordHasher
	tokens   *security.TokenIssuer
	tokenSvc *TokenService
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	credRepo repository.LocalCredentialRepository
	guard    AuthAbuseGuard
	notifier AccountNotifier
	profiles ProfileCacheStore
	logger   *slog.Logger
	now      func() time.Time

	placeholderOnce sync.Once
	placeholderHash string
}

func NewAccountService(
	cfg *config.Config,
	hasher *security.PasswordHasher,
	tokens *security.TokenIssuer,
	tokenSvc *TokenService,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	credRepo repository.LocalCredentialRepository,
	guard AuthAbuseGuard,
	notifier AccountNotifier,
	logger *slog.Logger,
) *AccountService {
	if guard == nil {
		guard = NewNoopAuthAbuseGuard()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		cfg:      cfg,
		hasher:   hasher,
		tokens:   tokens,
		tokenSvc: tokenSvc,
		userRepo: userRepo,
		roleRepo: roleRepo,
		credRepo: credRepo,
		guard:    guard,
		notifier: notifier,
		profiles: NewNoopProfileCacheStore(),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	ctx, span := observability.StartSpan(ctx, "account.register")
	res, err := s.register(ctx, in)
	s.finish(ctx, span, "register", err)
	return res, err
}

func (s *AccountService) register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	name := strings.TrimSpace(in.Name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-30 letters, digits, dots, dashes or underscores", ErrInvalidInput)
	}
	if name == "" {
		name = username
	}
	if err := s.validatePassword(in.Password, email, username); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(email, username); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(ctx, in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	activationRequired := s.cfg.AuthActivationRequired
	user := &domain.User{
		Email:    email,
		Username: username,
		Name:     name,
		Active:   !activationRequired,
		Status:   domain.UserStatusActive,
	}
	roles, err := s.defaultRoles(ctx, email)
	if err != nil {
		return nil, err
	}

	cred := &domain.LocalCredential{}
	cred.SetPasswordHash(hash, now)
	var activationToken string
	if activationRequired {
		activationToken, err = s.tokens.GenerateActivationToken()
		if err != nil {
			return nil, fmt.Errorf("generate activation token: %w", err)
		}
		cred.SetActivationToken(activationToken, now)
	}
	if err := s.userRepo.CreateAccount(user, roles, cred); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, s.takenError(email, username)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	if activationRequired {
		if err := s.sendActivation(ctx, user, activationToken, now); err != nil {
			return nil, err
		}
	}

	fresh, err := s.userRepo.FindByID(user.ID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	return &RegisterResult{User: fresh, ActivationRequired: activationRequired}, nil
}

// Activate consumes the activation token for email and marks the account
// active. Unknown emails and wrong or stale tokens all yield ErrInvalidToken.
func (s *AccountService) Activate(ctx context.Context, email, token string) error {
	ctx, span := observability.StartSpan(ctx, "account.activate")
	err := s.activate(ctx, email, token)
	s.finish(ctx, span, "activate", err)
	return err
}

func (s *AccountService) activate(ctx context.Context, email, token string) error {
	email = normalizeEmail(email)
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return ErrInvalidToken
	}
	cred, err := s.credRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			observability.RecordTokenConsume(ctx, "activation", "invalid")
			return ErrInvalidToken
		}
		return fmt.Errorf("find credential: %w", err)
	}
	ttl := s.cfg.AuthActivationTokenTTL
	var issuedAt *time.Time
	if ttl > 0 {
		issuedAt = cred.ActivateStartedAt
	}
	if !s.tokens.ConsumeToken(token, cred.ActivateHash, issuedAt, ttl) {
		observability.RecordTokenConsume(ctx, "activation", "invalid")
		return ErrInvalidToken
	}
	if cred.PasswordHash == "" {
		observability.RecordTokenConsume(ctx, "activation", "invalid")
		return fmt.Errorf("%w: account has no password", ErrInvalidToken)
	}
	if err := s.credRepo.ConsumeActivationToken(cred.UserID, token); err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyConsumed) {
			observability.RecordTokenConsume(ctx, "activation", "already_consumed")
			return ErrInvalidToken
		}
		return fmt.Errorf("consume activation token: %w", err)
	}
	observability.RecordTokenConsume(ctx, "activation", "consumed")
	return nil
}

// ResendActivation issues a fresh activation token. Unknown, banned and
// already active accounts are ignored so the response never reveals which
// emails are registered.
func (s *AccountService) ResendActivation(ctx context.Context, email string) error {
	ctx, span := observability.StartSpan(ctx, "account.resend_activation")
	err := s.resendActivation(ctx, email)
	s.finish(ctx, span, "resend_activation", err)
	return err
}

func (s *AccountService) resendActivation(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.IsActivated() || user.IsBanned() {
		return nil
	}
	token, err := s.tokens.GenerateActivationToken()
	if err != nil {
		return fmt.Errorf("generate activation token: %w", err)
	}
	now := s.now().UTC()
	if err := s.credRepo.SetActivationToken(user.ID, token, now); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil
		}
		return fmt.Errorf("store activation token: %w", err)
	}
	return s.sendActivation(ctx, user, token, now)
}

// Login authenticates by email or username. Unknown accounts and wrong
// passwords are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, identity, password, ua, ip string) (*LoginResult, error) {
	ctx, span := observability.StartSpan(ctx, "account.login")
	res, err := s.login(ctx, identity, password, ua, ip)
	s.finish(ctx, span, "login", err)
	observability.RecordLoginAttempt(ctx, loginOutcome(err))
	return res, err
}

func (s *AccountService) login(ctx context.Context, identity, password, ua, ip string) (*LoginResult, error) {
	identity = strings.TrimSpace(identity)
	guardKey := strings.ToLower(identity)
	if err := s.checkGuard(ctx, AuthAbuseScopeLogin, guardKey, ip); err != nil {
		return nil, err
	}

	var (
		user *domain.User
		cred *domain.LocalCredential
		err  error
	)
	if identity != "" {
		user, err = s.findByIdentity(identity)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
	}
	if user != nil {
		cred, err = s.credRepo.FindByUserID(user.ID)
		if err != nil && !errors.Is(err, repository.ErrCredentialNotFound) {
			return nil, fmt.Errorf("find credential: %w", err)
		}
	}
	encoded := s.timingPlaceholderHash()
	if cred != nil {
		encoded = cred.PasswordHash
	}
	if !s.verifyPassword(ctx, password, encoded) || cred == nil {
		s.registerFailure(ctx, AuthAbuseScopeLogin, guardKey, ip)
		return nil, ErrInvalidCredentials
	}
	if user.IsBanned() {
		return nil, &BannedError{Reason: user.StatusMessage}
	}
	if !user.IsActivated() {
		return nil, ErrAccountNotActivated
	}
	s.resetGuard(ctx, AuthAbuseScopeLogin, guardKey, ip)

	if s.hasher.NeedsRehash(cred.PasswordHash) {
		if upgraded, err := s.hashPassword(ctx, password); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		} else if err := s.credRepo.UpdatePassword(user.ID, upgraded); err != nil {
			s.logger.WarnContext(ctx, "password rehash store failed", "user_id", user.ID, "error", err)
		} else {
			s.logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID, "algorithm", string(s.hasher.Algorithm()))
		}
	}

	now := s.now().UTC()
	if err := s.userRepo.TouchLastSeen(user.ID, now); err != nil {
		s.logger.WarnContext(ctx, "touch last seen failed", "user_id", user.ID, "error", err)
	} else {
		user.LastSeenAt = &now
	}
	access, expiresAt, err := s.tokenSvc.Issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "login succeeded", "user_id", user.ID, "user_agent", ua)
	return &LoginResult{User: user, AccessToken: access, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// ForgotPassword issues a reset token and notifies the account owner. It
// reports success for unknown emails.
func (s *AccountService) ForgotPassword(ctx context.Context, email, ip string) error {
	ctx, span := observability.StartSpan(ctx, "account.forgot_password")
	err := s.forgotPassword(ctx, email, ip)
	s.finish(ctx, span, "forgot_password", err)
	return err
}

func (s *AccountService) forgotPassword(ctx context.Context, email, ip string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := s.checkGuard(ctx, AuthAbuseScopeForgot, email, ip); err != nil {
		return err
	}
	s.registerFailure(ctx, AuthAbuseScopeForgot, email, ip)

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.IsBanned() {
		return nil
	}
	token, issuedAt, err := s.tokens.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.credRepo.SetResetToken(user.ID, token, issuedAt); err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil
		}
		return fmt.Errorf("store reset token: %w", err)
	}
	link, err := buildTokenLink(s.cfg.AuthPasswordResetBaseURL, token, user.Email)
	if err != nil {
		return err
	}
	expiresAt := issuedAt.Add(s.cfg.AuthResetTokenTTL)
	if err := s.notifier.SendPasswordReset(ctx, AccountNotification{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: &expiresAt,
		Link:      link,
	}); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}

// ResetPassword consumes the reset token and stores the new password. The
// storage-level consume guarantees a token is only ever used once.
func (s *AccountService) ResetPassword(ctx context.Context, email, token, newPassword, ip string) error {
	ctx, span := observability.StartSpan(ctx, "account.reset_password")
	err := s.resetPassword(ctx, email, token, newPassword, ip)
	s.finish(ctx, span, "reset_password", err)
	return err
}

func (s *AccountService) resetPassword(ctx context.Context, email, token, newPassword, ip string) error {
	email = normalizeEmail(email)
	token = strings.TrimSpace(token)
	if err := s.checkGuard(ctx, AuthAbuseScopeReset, email, ip); err != nil {
		return err
	}
	if email == "" || token == "" {
		return ErrInvalidToken
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.registerFailure(ctx, AuthAbuseScopeReset, email, ip)
			observability.RecordTokenConsume(ctx, "reset", "invalid")
			return ErrInvalidToken
		}
		return fmt.Errorf("find user: %w", err)
	}
	if err := s.validatePassword(newPassword, user.Email, user.Username); err != nil {
		return err
	}
	cred, err := s.credRepo.FindByUserID(user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			observability.RecordTokenConsume(ctx, "reset", "invalid")
			return ErrInvalidToken
		}
		return fmt.Errorf("find credential: %w", err)
	}
	if !s.tokens.ConsumeToken(token, cred.ResetHash, cred.ResetStartedAt, s.cfg.AuthResetTokenTTL) {
		s.registerFailure(ctx, AuthAbuseScopeReset, email, ip)
		observability.RecordTokenConsume(ctx, "reset", "invalid")
		return ErrInvalidToken
	}
	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := s.credRepo.ConsumeResetToken(user.ID, token, hash); err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyConsumed) {
			observability.RecordTokenConsume(ctx, "reset", "already_consumed")
			return ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	observability.RecordTokenConsume(ctx, "reset", "consumed")
	s.resetGuard(ctx, AuthAbuseScopeReset, email, ip)
	s.resetGuard(ctx, AuthAbuseScopeLogin, email, ip)
	return nil
}

func (s *AccountService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	ctx, span := observability.StartSpan(ctx, "account.change_password")
	err := s.changePassword(ctx, userID, currentPassword, newPassword)
	s.finish(ctx, span, "change_password", err)
	return err
}

func (s *AccountService) changePassword(ctx context.Context, userID uint, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	cred, err := s.credRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("find credential: %w", err)
	}
	if !s.verifyPassword(ctx, currentPassword, cred.PasswordHash) {
		return ErrInvalidCredentials
	}
	if currentPassword == newPassword {
		return ErrPasswordUnchanged
	}
	if err := s.validatePassword(newPassword, user.Email, user.Username); err != nil {
		return err
	}
	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := s.credRepo.UpdatePassword(userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// WithProfileCache lets admin mutations drop stale public profiles.
func (s *AccountService) WithProfileCache(store ProfileCacheStore) *AccountService {
	if store != nil {
		s.profiles = store
	}
	return s
}

func (s *AccountService) Ban(ctx context.Context, userID uint, reason string) (*domain.User, error) {
	return s.mutateUser(ctx, "ban", userID, func(u *domain.User) error {
		u.Ban(reason)
		return s.userRepo.UpdateStatus(u.ID, u.Status, u.StatusMessage)
	})
}

func (s *AccountService) Unban(ctx context.Context, userID uint) (*domain.User, error) {
	return s.mutateUser(ctx, "unban", userID, func(u *domain.User) error {
		u.Unban()
		return s.userRepo.UpdateStatus(u.ID, u.Status, u.StatusMessage)
	})
}

// SetPermissions replaces the permission list. Names are trimmed and
// deduplicated; a nil list leaves the stored permissions untouched.
func (s *AccountService) SetPermissions(ctx context.Context, userID uint, permissions []string) (*domain.User, error) {
	return s.mutateUser(ctx, "set_permissions", userID, func(u *domain.User) error {
		if permissions == nil {
			return nil
		}
		if err := u.SetPermissions(normalizePermissions(permissions)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return s.userRepo.UpdatePermissions(u.ID, u.Permissions)
	})
}

func (s *AccountService) mutateUser(ctx context.Context, action string, userID uint, apply func(*domain.User) error) (*domain.User, error) {
	ctx, span := observability.StartSpan(ctx, "account.admin."+action)
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			err = ErrUserNotFound
		} else {
			err = fmt.Errorf("find user: %w", err)
		}
	} else if applyErr := apply(user); applyErr != nil {
		if errors.Is(applyErr, repository.ErrUserNotFound) {
			applyErr = ErrUserNotFound
		}
		err = applyErr
		user = nil
	}
	if err == nil {
		invalidateCachedProfile(ctx, s.profiles, s.logger, user.Username)
	}
	observability.EndSpan(span, err)
	observability.RecordAdminAccountMutation(ctx, action, flowOutcome(err))
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccountService) finish(ctx context.Context, span trace.Span, flow string, err error) {
	observability.EndSpan(span, err)
	observability.RecordAccountFlow(ctx, flow, flowOutcome(err))
}

func (s *AccountService) checkGuard(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	retry, err := s.guard.Check(ctx, scope, identity, ip)
	if err != nil {
		observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "check", "error")
		s.logger.WarnContext(ctx, "auth abuse guard check failed", "scope", scope, "error", err)
		return nil
	}
	if retry > 0 {
		observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "check", "throttled")
		return &ThrottledError{Scope: scope, RetryAfter: retry}
	}
	observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "check", "allowed")
	return nil
}

func (s *AccountService) registerFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) {
	cooldown, err := s.guard.RegisterFailure(ctx, scope, identity, ip)
	if err != nil {
		observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "register_failure", "error")
		s.logger.WarnContext(ctx, "auth abuse guard register failed", "scope", scope, "error", err)
		return
	}
	observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "register_failure", "recorded")
	if cooldown > 0 {
		observability.RecordAuthAbuseCooldown(ctx, string(scope), "register_failure", cooldown)
	}
}

func (s *AccountService) resetGuard(ctx context.Context, scope AuthAbuseScope, identity, ip string) {
	if err := s.guard.Reset(ctx, scope, identity, ip); err != nil {
		observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "reset", "error")
		s.logger.WarnContext(ctx, "auth abuse guard reset failed", "scope", scope, "error", err)
		return
	}
	observability.RecordAuthAbuseGuardEvent(ctx, string(scope), "reset", "cleared")
}

func (s *AccountService) hashPassword(ctx context.Context, password string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.HashPassword(password)
	observability.RecordPasswordHashDuration(ctx, string(s.hasher.Algorithm()), "hash", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *AccountService) verifyPassword(ctx context.Context, password, encoded string) bool {
	start := time.Now()
	ok := s.hasher.VerifyPassword(password, encoded)
	observability.RecordPasswordHashDuration(ctx, string(s.hasher.Algorithm()), "verify", time.Since(start))
	return ok
}

// timingPlaceholderHash gives unknown accounts a real hash to verify against
// so they cost as much as known ones.
func (s *AccountService) timingPlaceholderHash() string {
	s.placeholderOnce.Do(func() {
		hash, err := s.hasher.HashPassword(timingPasswordPlaceholder)
		if err != nil {
			s.logger.Warn("placeholder password hash failed", "error", err)
			return
		}
		s.placeholderHash = hash
	})
	return s.placeholderHash
}

func (s *AccountService) findByIdentity(identity string) (*domain.User, error) {
	if strings.Contains(identity, "@") {
		return s.userRepo.FindByEmail(normalizeEmail(identity))
	}
	return s.userRepo.FindByUsername(identity)
}

func (s *AccountService) ensureAvailable(email, username string) error {
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}
	return nil
}

// takenError names the field that lost a concurrent registration race.
func (s *AccountService) takenError(email, username string) error {
	if err := s.ensureAvailable(email, username); errors.Is(err, ErrUsernameTaken) {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

func (s *AccountService) defaultRoles(ctx context.Context, email string) ([]domain.Role, error) {
	names := []string{domain.RoleUser}
	if target := normalizeEmail(s.cfg.BootstrapAdminEmail); target != "" && target == email {
		names = append(names, domain.RoleSuperadmin)
	}
	roles, err := s.roleRepo.FindByNames(names)
	if err != nil {
		if !errors.Is(err, repository.ErrRoleNotFound) {
			return nil, fmt.Errorf("find roles: %w", err)
		}
		s.logger.WarnContext(ctx, "role missing, run seed", "error", err)
	}
	return roles, nil
}

func (s *AccountService) sendActivation(ctx context.Context, user *domain.User, token string, issuedAt time.Time) error {
	link, err := buildTokenLink(s.cfg.AuthActivationBaseURL, token, user.Email)
	if err != nil {
		return err
	}
	var expiresAt *time.Time
	if ttl := s.cfg.AuthActivationTokenTTL; ttl > 0 {
		at := issuedAt.Add(ttl)
		expiresAt = &at
	}
	if err := s.notifier.SendActivation(ctx, AccountNotification{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expiresAt,
		Link:      link,
	}); err != nil {
		return fmt.Errorf("send activation: %w", err)
	}
	return nil
}

func (s *AccountService) validatePassword(password, email, username string) error {
	minLen := s.cfg.AuthPasswordMinLength
	if minLen <= 0 {
		minLen = defaultPasswordMinLength
	}
	if utf8.RuneCountInString(password) < minLen {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, minLen)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, maxPasswordBytes)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: must not be blank", ErrWeakPassword)
	}
	lowered := strings.ToLower(password)
	for _, personal := range personalValues(email, username) {
		if lowered == personal {
			return fmt.Errorf("%w: must not match your email or username", ErrWeakPassword)
		}
	}
	return nil
}

func personalValues(email, username string) []string {
	out := make([]string, 0, 3)
	if email != "" {
		out = append(out, strings.ToLower(email))
		if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
			out = append(out, strings.ToLower(local))
		}
	}
	if username != "" {
		out = append(out, strings.ToLower(username))
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}

func normalizePermissions(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func flowOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isRejection(err):
		return "rejected"
	default:
		return "error"
	}
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrLoginThrottled):
		return "throttled"
	case errors.Is(err, ErrAccountBanned):
		return "banned"
	case errors.Is(err, ErrAccountNotActivated):
		return "not_activated"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}

// isRejection reports whether err is an expected refusal rather than a fault.
func isRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrInvalidCredentials, ErrWeakPassword, ErrPasswordUnchanged,
		ErrInvalidToken, ErrAccountBanned, ErrAccountNotActivated, ErrEmailTaken,
		ErrUsernameTaken, ErrUserNotFound, ErrLoginThrottled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
