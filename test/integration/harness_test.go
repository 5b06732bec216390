package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/memberkit/credential-service/internal/config"
	"github.com/memberkit/credential-service/internal/database"
	"github.com/memberkit/credential-service/internal/http/handler"
	"github.com/memberkit/credential-service/internal/http/router"
	"github.com/memberkit/credential-service/internal/repository"
	"github.com/memberkit/credential-service/internal/security"
	"github.com/memberkit/credential-service/internal/service"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "Root#Pass12345"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (e apiEnvelope) code() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

type captureNotifier struct {
	mu         sync.Mutex
	activation map[string]string
	reset      map[string]string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{activation: map[string]string{}, reset: map[string]string{}}
}

func (n *captureNotifier) SendActivation(_ context.Context, msg service.AccountNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.activation[msg.Email] = msg.Token
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, msg service.AccountNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset[msg.Email] = msg.Token
	return nil
}

func (n *captureNotifier) activationToken(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activation[email]
}

func (n *captureNotifier) resetToken(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reset[email]
}

type testServerOptions struct {
	cfgOverride func(cfg *config.Config)
	db          *gorm.DB
}

type testServer struct {
	baseURL  string
	client   *http.Client
	notifier *captureNotifier
	db       *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithOptions(t, testServerOptions{})
}

func newTestServerWithOptions(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	cfg := &config.Config{
		DatabaseURL:              fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		JWTIssuer:                "iss",
		JWTAudience:              "aud",
		JWTAccessSecret:          "abcdefghijklmnopqrstuvwxyz123456",
		JWTAccessTTL:             15 * time.Minute,
		HashAlgorithm:            string(security.HashBcrypt),
		HashCost:                 4,
		AuthPasswordMinLength:    8,
		AuthActivationRequired:   true,
		AuthActivationBaseURL:    "http://localhost:3000/activate",
		AuthPasswordResetBaseURL: "http://localhost:3000/reset",
		AuthResetTokenTTL:        2 * time.Hour,
		AuthRateLimitPerMin:      1000,
		APIRateLimitPerMin:       1000,
		AuthAbuseProtection:      true,
		AuthAbuseFreeAttempts:    3,
		AuthAbuseBaseDelay:       2 * time.Second,
		AuthAbuseMultiplier:      2,
		AuthAbuseMaxDelay:        5 * time.Minute,
		AuthAbuseResetWindow:     30 * time.Minute,
		BootstrapAdminEmail:      adminEmail,
		BootstrapAdminPassword:   adminPassword,
	}
	if opts.cfgOverride != nil {
		opts.cfgOverride(cfg)
	}

	hasher, err := security.NewPasswordHasher(cfg.PasswordConfig())
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	db := opts.db
	if db == nil {
		db, err = database.Open(cfg)
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := database.SeedSync(db, database.SeedOptions{
		AdminEmail:    cfg.BootstrapAdminEmail,
		AdminPassword: cfg.BootstrapAdminPassword,
		Hasher:        hasher,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	credRepo := repository.NewLocalCredentialRepository(db)
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
	tokenSvc := service.NewTokenService(jwtMgr, cfg.JWTAccessTTL)
	guard := service.NewAuthAbuseGuard(cfg.AuthAbuseProtection, nil, "", service.AuthAbusePolicy{
		FreeAttempts: cfg.AuthAbuseFreeAttempts,
		BaseDelay:    cfg.AuthAbuseBaseDelay,
		Multiplier:   cfg.AuthAbuseMultiplier,
		MaxDelay:     cfg.AuthAbuseMaxDelay,
		ResetWindow:  cfg.AuthAbuseResetWindow,
	})
	notifier := newCaptureNotifier()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	profiles := service.NewInMemoryProfileCacheStore()

	accountSvc := service.NewAccountService(cfg, hasher, security.NewTokenIssuer(), tokenSvc, userRepo, roleRepo, credRepo, guard, notifier, logger).
		WithProfileCache(profiles)
	userSvc := service.NewUserService(userRepo).WithProfileCache(profiles, time.Minute, logger)

	r := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(accountSvc),
		UserHandler:      handler.NewUserHandler(userSvc),
		AdminHandler:     handler.NewAdminHandler(accountSvc, userSvc),
		TokenParser:      tokenSvc,
		CORSOrigins:      []string{"http://localhost"},
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:  cfg.APIRateLimitPerMin,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{baseURL: srv.URL, client: srv.Client(), notifier: notifier, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*http.Response, apiEnvelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, s.baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env apiEnvelope
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env
}

func (s *testServer) register(t *testing.T, email, username, password string) {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	}, "")
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("register %s: status=%d code=%s", email, resp.StatusCode, env.code())
	}
}

func (s *testServer) registerActive(t *testing.T, email, username, password string) {
	t.Helper()
	s.register(t, email, username, password)
	token := s.notifier.activationToken(email)
	if token == "" {
		t.Fatalf("no activation token captured for %s", email)
	}
	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/activate", map[string]string{"email": email, "token": token}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate %s: status=%d code=%s", email, resp.StatusCode, env.code())
	}
}

func (s *testServer) login(t *testing.T, identity, password string) string {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"identity": identity, "password": password}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status=%d code=%s", identity, resp.StatusCode, env.code())
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		t.Fatalf("login %s: missing access token (%v)", identity, err)
	}
	return data.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}
