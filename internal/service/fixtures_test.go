package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/memberkit/credential-service/internal/config"
	"github.com/memberkit/credential-service/internal/domain"
	"github.com/memberkit/credential-service/internal/repository"
	repogomock "github.com/memberkit/credential-service/internal/repository/gomock"
	"github.com/memberkit/credential-service/internal/security"
	"go.uber.org/mock/gomock"
)

const testJWTSecret = "abcdefghijklmnopqrstuvwxyz123456"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type accountFixture struct {
	cfg      *config.Config
	clock    *testClock
	hasher   *security.PasswordHasher
	accounts *AccountService
	users    *UserService
	userRepo *userRepoState
	roleRepo *roleRepoState
	credRepo *credentialState
	notifier *notifierState
	guard    *InMemoryAuthAbuseGuard
}

func testPasswordConfig() security.PasswordConfig {
	return security.PasswordConfig{Algorithm: security.HashArgon2id, MemoryCost: 1024, TimeCost: 1, Threads: 1}
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	cfg := &config.Config{
		JWTAccessTTL:             15 * time.Minute,
		AuthPasswordMinLength:    8,
		AuthResetTokenTTL:        2 * time.Hour,
		AuthActivationRequired:   true,
		AuthPasswordResetBaseURL: "https://members.example.com/reset",
		AuthActivationBaseURL:    "https://members.example.com/activate",
		BootstrapAdminEmail:      "root@example.com",
	}
	clock := &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}

	hasher, err := security.NewPasswordHasher(testPasswordConfig())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	userRepo := newUserRepoState()
	roleRepo := newRoleRepoState()
	userRepo.roles = roleRepo
	credRepo := newCredentialState(userRepo)
	userRepo.creds = credRepo
	notifier := &notifierState{}

	ctrl := gomock.NewController(t)
	userRepoMock := repogomock.NewMockUserRepository(ctrl)
	roleRepoMock := repogomock.NewMockRoleRepository(ctrl)
	credRepoMock := repogomock.NewMockLocalCredentialRepository(ctrl)
	notifierMock := NewMockAccountNotifier(ctrl)

	userRepoMock.EXPECT().FindByID(gomock.Any()).AnyTimes().DoAndReturn(userRepo.FindByID)
	userRepoMock.EXPECT().FindByEmail(gomock.Any()).AnyTimes().DoAndReturn(userRepo.FindByEmail)
	userRepoMock.EXPECT().FindByUsername(gomock.Any()).AnyTimes().DoAndReturn(userRepo.FindByUsername)
	userRepoMock.EXPECT().Create(gomock.Any()).AnyTimes().DoAndReturn(userRepo.Create)
	userRepoMock.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(userRepo.CreateAccount)
	userRepoMock.EXPECT().Update(gomock.Any()).AnyTimes().DoAndReturn(userRepo.Update)
	userRepoMock.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(userRepo.UpdateStatus)
	userRepoMock.EXPECT().UpdatePermissions(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(userRepo.UpdatePermissions)
	userRepoMock.EXPECT().TouchLastSeen(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(userRepo.TouchLastSeen)
	userRepoMock.EXPECT().SetActive(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(userRepo.SetActive)
	userRepoMock.EXPECT().AddRole(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(userRepo.AddRole)
	userRepoMock.EXPECT().SaveSetting(gomock.Any()).AnyTimes().DoAndReturn(userRepo.SaveSetting)
	userRepoMock.EXPECT().List().AnyTimes().DoAndReturn(userRepo.List)
	userRepoMock.EXPECT().ListPaged(gomock.Any()).AnyTimes().DoAndReturn(userRepo.ListPaged)

	roleRepoMock.EXPECT().FindByName(gomock.Any()).AnyTimes().DoAndReturn(roleRepo.FindByName)
	roleRepoMock.EXPECT().FindByNames(gomock.Any()).AnyTimes().DoAndReturn(roleRepo.FindByNames)

	credRepoMock.EXPECT().Create(gomock.Any()).AnyTimes().DoAndReturn(credRepo.Create)
	credRepoMock.EXPECT().FindByUserID(gomock.Any()).AnyTimes().DoAndReturn(credRepo.FindByUserID)
	credRepoMock.EXPECT().FindByEmail(gomock.Any()).AnyTimes().DoAndReturn(credRepo.FindByEmail)
	credRepoMock.EXPECT().UpdatePassword(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(credRepo.UpdatePassword)
	credRepoMock.EXPECT().SetResetToken(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(credRepo.SetResetToken)
	credRepoMock.EXPECT().ConsumeResetToken(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(credRepo.ConsumeResetToken)
	credRepoMock.EXPECT().SetActivationToken(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(credRepo.SetActivationToken)
	credRepoMock.EXPECT().ConsumeActivationToken(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(credRepo.ConsumeActivationToken)

	notifierMock.EXPECT().SendActivation(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(notifier.SendActivation)
	notifierMock.EXPECT().SendPasswordReset(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(notifier.SendPasswordReset)

	guard := NewInMemoryAuthAbuseGuard(AuthAbusePolicy{
		FreeAttempts: 3,
		BaseDelay:    time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
		ResetWindow:  15 * time.Minute,
	})
	guard.now = clock.Now

	tokenSvc := NewTokenService(security.NewJWTManager("test-issuer", "test-audience", testJWTSecret), cfg.JWTAccessTTL)
	accounts := NewAccountService(cfg, hasher, security.NewTokenIssuerWithClock(clock.Now), tokenSvc,
		userRepoMock, roleRepoMock, credRepoMock, guard, notifierMock, nil)
	accounts.now = clock.Now
	users := NewUserService(userRepoMock)
	users.now = clock.Now

	return &accountFixture{
		cfg:      cfg,
		clock:    clock,
		hasher:   hasher,
		accounts: accounts,
		users:    users,
		userRepo: userRepo,
		roleRepo: roleRepo,
		credRepo: credRepo,
		notifier: notifier,
		guard:    guard,
	}
}

// register creates an account through the service and returns the activation
// token that was sent, if any.
func (fx *accountFixture) register(t *testing.T, email, username, password string) (*domain.User, string) {
	t.Helper()
	res, err := fx.accounts.Register(context.Background(), RegisterInput{Email: email, Username: username, Name: username, Password: password})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	token := ""
	if n, ok := fx.notifier.lastActivation(); ok && n.UserID == res.User.ID {
		token = n.Token
	}
	return res.User, token
}

// registerActive registers and activates an account.
func (fx *accountFixture) registerActive(t *testing.T, email, username, password string) *domain.User {
	t.Helper()
	user, token := fx.register(t, email, username, password)
	if token != "" {
		if err := fx.accounts.Activate(context.Background(), email, token); err != nil {
			t.Fatalf("activate %s: %v", email, err)
		}
	}
	u, _ := fx.userRepo.FindByID(user.ID)
	return u
}

type userRepoState struct {
	nextID  uint
	byID    map[uint]*domain.User
	roleIDs map[uint][]uint
	roles   *roleRepoState
	creds   *credentialState
}

func newUserRepoState() *userRepoState {
	return &userRepoState{nextID: 1, byID: map[uint]*domain.User{}, roleIDs: map[uint][]uint{}}
}

func (r *userRepoState) snapshot(u *domain.User) *domain.User {
	cp := *u
	cp.Roles = nil
	for _, id := range r.roleIDs[u.ID] {
		if r.roles != nil {
			if role, ok := r.roles.byID[id]; ok {
				cp.Roles = append(cp.Roles, *role)
			}
		}
	}
	if u.Setting != nil {
		setting := *u.Setting
		cp.Setting = &setting
	}
	return &cp
}

func (r *userRepoState) FindByID(id uint) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return r.snapshot(u), nil
}

func (r *userRepoState) FindByEmail(email string) (*domain.User, error) {
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return r.snapshot(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userRepoState) FindByUsername(username string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return r.snapshot(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userRepoState) Create(user *domain.User) error {
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

// CreateAccount stores nothing unless every part of the account can be stored.
func (r *userRepoState) CreateAccount(user *domain.User, roles []domain.Role, cred *domain.LocalCredential) error {
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return repository.ErrUserExists
		}
	}
	if r.creds != nil && r.creds.failCreate != nil {
		return r.creds.failCreate
	}
	if err := r.Create(user); err != nil {
		return err
	}
	for _, role := range roles {
		r.roleIDs[user.ID] = append(r.roleIDs[user.ID], role.ID)
	}
	cred.UserID = user.ID
	return r.creds.Create(cred)
}

func (r *userRepoState) Update(user *domain.User) error {
	u, ok := r.byID[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Name = user.Name
	u.AvatarURL = user.AvatarURL
	u.Email = user.Email
	u.Username = user.Username
	return nil
}

func (r *userRepoState) UpdateStatus(id uint, status, message string) error {
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Status = status
	u.StatusMessage = message
	return nil
}

func (r *userRepoState) UpdatePermissions(id uint, permissions string) error {
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Permissions = permissions
	return nil
}

func (r *userRepoState) TouchLastSeen(id uint, at time.Time) error {
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastSeenAt = &at
	return nil
}

func (r *userRepoState) SetActive(id uint, active bool) error {
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Active = active
	return nil
}

func (r *userRepoState) AddRole(userID, roleID uint) error {
	if _, ok := r.byID[userID]; !ok {
		return repository.ErrUserNotFound
	}
	for _, id := range r.roleIDs[userID] {
		if id == roleID {
			return nil
		}
	}
	r.roleIDs[userID] = append(r.roleIDs[userID], roleID)
	return nil
}

func (r *userRepoState) SaveSetting(setting *domain.UserSetting) error {
	u, ok := r.byID[setting.UserID]
	if !ok {
		return repository.ErrUserNotFound
	}
	cp := *setting
	u.Setting = &cp
	return nil
}

func (r *userRepoState) List() ([]domain.User, error) {
	ids := make([]int, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.snapshot(r.byID[uint(id)]))
	}
	return out, nil
}

func (r *userRepoState) ListPaged(req repository.PageRequest) (repository.PageResult[domain.User], error) {
	all, _ := r.List()
	req = req.Normalize()
	start := min(req.Offset(), len(all))
	end := min(start+req.PageSize, len(all))
	return repository.NewPageResult(all[start:end], req, int64(len(all))), nil
}

type roleRepoState struct {
	byID map[uint]*domain.Role
}

func newRoleRepoState() *roleRepoState {
	return &roleRepoState{byID: map[uint]*domain.Role{
		1: {ID: 1, Name: domain.RoleSuperadmin},
		2: {ID: 2, Name: domain.RoleAdmin},
		3: {ID: 3, Name: domain.RoleUser},
	}}
}

func (r *roleRepoState) FindByName(name string) (*domain.Role, error) {
	for _, role := range r.byID {
		if role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, repository.ErrRoleNotFound
}

func (r *roleRepoState) FindByNames(names []string) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(names))
	for _, name := range names {
		role, err := r.FindByName(name)
		if err != nil {
			return out, err
		}
		out = append(out, *role)
	}
	return out, nil
}

type credentialState struct {
	users      *userRepoState
	byUserID   map[uint]*domain.LocalCredential
	failCreate error
}

func newCredentialState(users *userRepoState) *credentialState {
	return &credentialState{users: users, byUserID: map[uint]*domain.LocalCredential{}}
}

func (r *credentialState) Create(c *domain.LocalCredential) error {
	cp := *c
	r.byUserID[c.UserID] = &cp
	return nil
}

func (r *credentialState) FindByUserID(userID uint) (*domain.LocalCredential, error) {
	c, ok := r.byUserID[userID]
	if !ok {
		return nil, repository.ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *credentialState) FindByEmail(email string) (*domain.LocalCredential, error) {
	u, err := r.users.FindByEmail(email)
	if err != nil {
		return nil, repository.ErrCredentialNotFound
	}
	return r.FindByUserID(u.ID)
}

func (r *credentialState) UpdatePassword(userID uint, newHash string) error {
	c, ok := r.byUserID[userID]
	if !ok {
		return repository.ErrCredentialNotFound
	}
	c.SetPasswordHash(newHash, time.Now())
	return nil
}

func (r *credentialState) SetResetToken(userID uint, token string, issuedAt time.Time) error {
	c, ok := r.byUserID[userID]
	if !ok {
		return repository.ErrCredentialNotFound
	}
	c.SetResetToken(token, issuedAt)
	return nil
}

func (r *credentialState) ConsumeResetToken(userID uint, token, newHash string) error {
	c, ok := r.byUserID[userID]
	if !ok || c.ResetHash == nil || *c.ResetHash != token {
		return repository.ErrTokenAlreadyConsumed
	}
	c.SetPasswordHash(newHash, time.Now())
	c.ClearResetToken()
	if u, ok := r.users.byID[userID]; ok {
		u.ForcePassReset = false
	}
	return nil
}

func (r *credentialState) SetActivationToken(userID uint, token string, issuedAt time.Time) error {
	c, ok := r.byUserID[userID]
	if !ok {
		return repository.ErrCredentialNotFound
	}
	c.SetActivationToken(token, issuedAt)
	return nil
}

func (r *credentialState) ConsumeActivationToken(userID uint, token string) error {
	c, ok := r.byUserID[userID]
	if !ok || c.ActivateHash == nil || *c.ActivateHash != token || c.PasswordHash == "" {
		return repository.ErrTokenAlreadyConsumed
	}
	c.ClearActivationToken()
	return r.users.SetActive(userID, true)
}

type notifierState struct {
	activations []AccountNotification
	resets      []AccountNotification
}

func (n *notifierState) SendActivation(_ context.Context, notification AccountNotification) error {
	n.activations = append(n.activations, notification)
	return nil
}

func (n *notifierState) SendPasswordReset(_ context.Context, notification AccountNotification) error {
	n.resets = append(n.resets, notification)
	return nil
}

func (n *notifierState) lastActivation() (AccountNotification, bool) {
	if len(n.activations) == 0 {
		return AccountNotification{}, false
	}
	return n.activations[len(n.activations)-1], true
}

func (n *notifierState) lastReset() (AccountNotification, bool) {
	if len(n.resets) == 0 {
		return AccountNotification{}, false
	}
	return n.resets[len(n.resets)-1], true
}
