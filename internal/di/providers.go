package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/memberkit/credential-service/internal/app"
	"github.com/memberkit/credential-service/internal/config"
	"github.com/memberkit/credential-service/internal/database"
	"github.com/memberkit/credential-service/internal/health"
	"github.com/memberkit/credential-service/internal/http/handler"
	"github.com/memberkit/credential-service/internal/http/middleware"
	"github.com/memberkit/credential-service/internal/http/router"
	"github.com/memberkit/credential-service/internal/observability"
	"github.com/memberkit/credential-service/internal/repository"
	"github.com/memberkit/credential-service/internal/security"
	"github.com/memberkit/credential-service/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRuntimeDB,
	provideRedisClient,
	provideReadinessProbeRunner,
)

var RepositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewRoleRepository,
	repository.NewLocalCredentialRepository,
)

var SecuritySet = wire.NewSet(
	provideJWTManager,
	providePasswordHasher,
	security.NewTokenIssuer,
)

var ServiceSet = wire.NewSet(
	provideTokenService,
	provideAuthAbuseGuard,
	provideAccountNotifier,
	provideProfileCacheStore,
	provideAccountService,
	provideUserService,
	wire.Bind(new(service.AccountServiceInterface), new(*service.AccountService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
)

var HTTPSet = wire.NewSet(
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewAdminHandler,
	provideAPIRateLimiter,
	provideAuthRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

// SchemaBootstrap migrates the credential schema and seeds the roles and the
// bootstrap administrator in one step.
type SchemaBootstrap struct {
	cfg    *config.Config
	db     *gorm.DB
	hasher *security.PasswordHasher
}

func NewSchemaBootstrap(cfg *config.Config, db *gorm.DB, hasher *security.PasswordHasher) *SchemaBootstrap {
	return &SchemaBootstrap{cfg: cfg, db: db, hasher: hasher}
}

func (m *SchemaBootstrap) Run() (*database.SeedReport, error) {
	if err := database.Migrate(m.db); err != nil {
		return nil, err
	}
	return database.SeedSync(m.db, seedOptions(m.cfg, m.hasher))
}

// Close releases the connection pool opened for the bootstrap.
func (m *SchemaBootstrap) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func seedOptions(cfg *config.Config, hasher *security.PasswordHasher) database.SeedOptions {
	return database.SeedOptions{
		AdminEmail:    cfg.BootstrapAdminEmail,
		AdminPassword: cfg.BootstrapAdminPassword,
		Hasher:        hasher,
	}
}

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	return database.Open(cfg)
}

func provideRuntimeDB(cfg *config.Config, hasher *security.PasswordHasher) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.Seed(db, seedOptions(cfg, hasher)); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func providePasswordHasher(cfg *config.Config) (*security.PasswordHasher, error) {
	return security.NewPasswordHasher(cfg.PasswordConfig())
}

func provideTokenService(cfg *config.Config, jwt *security.JWTManager) *service.TokenService {
	return service.NewTokenService(jwt, cfg.JWTAccessTTL)
}

func provideAuthAbuseGuard(cfg *config.Config, redisClient redis.UniversalClient) service.AuthAbuseGuard {
	return service.NewAuthAbuseGuard(cfg.AuthAbuseProtection, redisClient, cfg.RedisKeyPrefix, service.AuthAbusePolicy{
		FreeAttempts: cfg.AuthAbuseFreeAttempts,
		BaseDelay:    cfg.AuthAbuseBaseDelay,
		Multiplier:   cfg.AuthAbuseMultiplier,
		MaxDelay:     cfg.AuthAbuseMaxDelay,
		ResetWindow:  cfg.AuthAbuseResetWindow,
	})
}

func provideAccountNotifier(cfg *config.Config, logger *slog.Logger) service.AccountNotifier {
	return service.NewDevAccountNotifier(logger, cfg.NotifierRevealTokens)
}

func provideProfileCacheStore(cfg *config.Config, redisClient redis.UniversalClient) service.ProfileCacheStore {
	return service.NewProfileCacheStore(redisClient, cfg.RedisKeyPrefix, cfg.ProfileCacheTTL)
}

func provideAccountService(
	cfg *config.Config,
	hasher *security.PasswordHasher,
	tokens *security.TokenIssuer,
	tokenSvc *service.TokenService,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	credRepo repository.LocalCredentialRepository,
	guard service.AuthAbuseGuard,
	notifier service.AccountNotifier,
	profiles service.ProfileCacheStore,
	logger *slog.Logger,
) *service.AccountService {
	return service.NewAccountService(cfg, hasher, tokens, tokenSvc, userRepo, roleRepo, credRepo, guard, notifier, logger).
		WithProfileCache(profiles)
}

func provideUserService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	profiles service.ProfileCacheStore,
	logger *slog.Logger,
) *service.UserService {
	return service.NewUserService(userRepo).WithProfileCache(profiles, cfg.ProfileCacheTTL, logger)
}

func rateLimitFailureMode(cfg *config.Config) middleware.FailureMode {
	if cfg.RateLimitFailOpen {
		return middleware.FailOpen
	}
	return middleware.FailClosed
}

func provideAPIRateLimiter(cfg *config.Config, redisClient redis.UniversalClient, tokenSvc *service.TokenService) router.APIRateLimiterFunc {
	var limiter middleware.Limiter = middleware.NewLocalFixedWindowLimiter()
	if redisClient != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisKeyPrefix+":rl")
	}
	return middleware.NewDistributedRateLimiterWithKey(
		limiter,
		cfg.APIRateLimitPerMin,
		time.Minute,
		rateLimitFailureMode(cfg),
		"api",
		middleware.SubjectOrIPKeyFunc(tokenSvc),
	).Middleware()
}

func provideAuthRateLimiter(cfg *config.Config, redisClient redis.UniversalClient) router.AuthRateLimiterFunc {
	var limiter middleware.Limiter = middleware.NewLocalFixedWindowLimiter()
	if redisClient != nil {
		limiter = middleware.NewRedisFixedWindowLimiter(redisClient, cfg.RedisKeyPrefix+":rl")
	}
	return middleware.NewDistributedRateLimiter(
		limiter,
		cfg.AuthRateLimitPerMin,
		time.Minute,
		rateLimitFailureMode(cfg),
		"auth",
	).Middleware()
}

func provideRouterDependencies(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	adminHandler *handler.AdminHandler,
	tokenSvc *service.TokenService,
	apiRateLimiter router.APIRateLimiterFunc,
	authRateLimiter router.AuthRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:      authHandler,
		UserHandler:      userHandler,
		AdminHandler:     adminHandler,
		TokenParser:      tokenSvc,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitPerMin,
		APIRateLimitRPM:  cfg.APIRateLimitPerMin,
		APIRateLimiter:   apiRateLimiter,
		AuthRateLimiter:  authRateLimiter,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient) *health.ProbeRunner {
	return health.NewProbeRunner(
		cfg.ReadinessProbeTimeout,
		cfg.ServerStartGracePeriod,
		health.NewDBChecker(db),
		health.NewRedisChecker(redisClient),
	)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *app.App {
	return app.New(cfg, logger, server, runtime, db, redisClient, readiness)
}
