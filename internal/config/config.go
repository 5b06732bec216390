package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/memberkit/credential-service/internal/security"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTIssuer       string
	JWTAudience     string
	JWTAccessSecret string
	JWTAccessTTL    time.Duration

	CORSAllowedOrigins     []string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	HashAlgorithm  string
	HashMemoryCost int
	HashTimeCost   int
	HashThreads    int
	HashCost       int

	AuthPasswordMinLength     int
	AuthResetTokenTTL         time.Duration
	AuthActivationRequired    bool
	AuthActivationTokenTTL    time.Duration
	AuthPasswordResetBaseURL  string
	AuthActivationBaseURL     string
	AuthRateLimitPerMin       int
	APIRateLimitPerMin        int
	AuthAbuseProtection       bool
	AuthAbuseFreeAttempts     int
	AuthAbuseBaseDelay        time.Duration
	AuthAbuseMultiplier       float64
	AuthAbuseMaxDelay         time.Duration
	AuthAbuseResetWindow      time.Duration
	RateLimitFailOpen         bool
	ProfileCacheTTL           time.Duration
	NotifierRevealTokens      bool
	RedisEnabled              bool
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	RedisKeyPrefix            string
	ReadinessProbeTimeout     time.Duration
	ServerStartGracePeriod    time.Duration
	ShutdownTimeout           time.Duration
	ShutdownHTTPDrainTimeout  time.Duration
	ShutdownObservabilityWait time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	otelDefault := !isLocalLikeEnv(env)

	cfg := &Config{
		Env:                    env,
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		JWTIssuer:              getEnv("JWT_ISSUER", "credential-service"),
		JWTAudience:            getEnv("JWT_AUDIENCE", "credential-service-api"),
		JWTAccessSecret:        os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowedOrigins:     splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		BootstrapAdminEmail:    strings.TrimSpace(strings.ToLower(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),

		HashAlgorithm:  strings.ToLower(getEnv("HASH_ALGORITHM", string(security.HashArgon2id))),
		HashMemoryCost: getEnvInt("HASH_MEMORY_COST", 65536),
		HashTimeCost:   getEnvInt("HASH_TIME_COST", 4),
		HashThreads:    getEnvInt("HASH_THREADS", 1),
		HashCost:       getEnvInt("HASH_COST", 10),

		AuthPasswordMinLength:    getEnvInt("AUTH_PASSWORD_MIN_LENGTH", 8),
		AuthActivationRequired:   getEnvBool("AUTH_ACTIVATION_REQUIRED", true),
		AuthPasswordResetBaseURL: os.Getenv("AUTH_PASSWORD_RESET_BASE_URL"),
		AuthActivationBaseURL:    os.Getenv("AUTH_ACTIVATION_BASE_URL"),
		AuthRateLimitPerMin:      getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:       getEnvInt("API_RATE_LIMIT_PER_MIN", 120),
		AuthAbuseProtection:      getEnvBool("AUTH_ABUSE_PROTECTION_ENABLED", true),
		AuthAbuseFreeAttempts:    getEnvInt("AUTH_ABUSE_FREE_ATTEMPTS", 3),
		AuthAbuseMultiplier:      getEnvFloat("AUTH_ABUSE_MULTIPLIER", 2.0),
		RateLimitFailOpen:        getEnvBool("RATE_LIMIT_REDIS_FAIL_OPEN", true),
		NotifierRevealTokens:     getEnvBool("NOTIFIER_REVEAL_TOKENS", isLocalLikeEnv(env)),
		RedisEnabled:             getEnvBool("REDIS_ENABLED", false),
		RedisAddr:                getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:           getEnv("REDIS_KEY_PREFIX", "credsvc"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "credential-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", otelDefault),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", otelDefault),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", otelDefault),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"JWT_ACCESS_TTL", "15m", &cfg.JWTAccessTTL},
		{"AUTH_RESET_TOKEN_TTL", "2h", &cfg.AuthResetTokenTTL},
		{"AUTH_ACTIVATION_TOKEN_TTL", "0s", &cfg.AuthActivationTokenTTL},
		{"AUTH_ABUSE_BASE_DELAY", "2s", &cfg.AuthAbuseBaseDelay},
		{"AUTH_ABUSE_MAX_DELAY", "5m", &cfg.AuthAbuseMaxDelay},
		{"AUTH_ABUSE_RESET_WINDOW", "30m", &cfg.AuthAbuseResetWindow},
		{"PROFILE_CACHE_TTL", "30s", &cfg.ProfileCacheTTL},
		{"READINESS_PROBE_TIMEOUT", "1s", &cfg.ReadinessProbeTimeout},
		{"SERVER_START_GRACE_PERIOD", "0s", &cfg.ServerStartGracePeriod},
		{"SHUTDOWN_TIMEOUT", "20s", &cfg.ShutdownTimeout},
		{"SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s", &cfg.ShutdownHTTPDrainTimeout},
		{"SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s", &cfg.ShutdownObservabilityWait},
		{"OTEL_METRICS_EXPORT_INTERVAL", "10s", &cfg.OTELMetricsExportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PasswordConfig converts the HASH_* settings into the hasher's explicit
// configuration. Range checks happen in Validate.
func (c *Config) PasswordConfig() security.PasswordConfig {
	return security.PasswordConfig{
		Algorithm:  security.HashAlgorithm(c.HashAlgorithm),
		MemoryCost: clampUint32(c.HashMemoryCost),
		TimeCost:   clampUint32(c.HashTimeCost),
		Threads:    clampUint8(c.HashThreads),
		Cost:       c.HashCost,
	}
}

func (c *Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "production", "prod":
		return true
	default:
		return false
	}
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.JWTAccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 chars")
	}
	if c.JWTAccessTTL <= 0 || c.JWTAccessTTL > 24*time.Hour {
		errs = append(errs, "JWT_ACCESS_TTL must be between 1s and 24h")
	}
	if c.HashMemoryCost < 0 || c.HashMemoryCost > 4*1024*1024 {
		errs = append(errs, "HASH_MEMORY_COST must be between 0 and 4194304 KiB")
	}
	if c.HashTimeCost < 0 || c.HashTimeCost > 64 {
		errs = append(errs, "HASH_TIME_COST must be between 0 and 64")
	}
	if c.HashThreads < 0 || c.HashThreads > 255 {
		errs = append(errs, "HASH_THREADS must be between 0 and 255")
	}
	if err := c.PasswordConfig().Validate(); err != nil {
		errs = append(errs, "HASH_*: "+err.Error())
	}
	if c.AuthPasswordMinLength < 1 {
		errs = append(errs, "AUTH_PASSWORD_MIN_LENGTH must be >= 1")
	}
	if c.AuthResetTokenTTL <= 0 || c.AuthResetTokenTTL > 7*24*time.Hour {
		errs = append(errs, "AUTH_RESET_TOKEN_TTL must be between 1s and 7d")
	}
	if c.AuthActivationTokenTTL < 0 {
		errs = append(errs, "AUTH_ACTIVATION_TOKEN_TTL must be >= 0")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.AuthAbuseFreeAttempts < 0 {
		errs = append(errs, "AUTH_ABUSE_FREE_ATTEMPTS must be >= 0")
	}
	if c.ProfileCacheTTL < 0 {
		errs = append(errs, "PROFILE_CACHE_TTL must be >= 0")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.BootstrapAdminPassword != "" && c.BootstrapAdminEmail == "" {
		errs = append(errs, "BOOTSTRAP_ADMIN_PASSWORD requires BOOTSTRAP_ADMIN_EMAIL")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if c.IsProduction() {
		errs = append(errs, c.validateProduction()...)
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateProduction() []string {
	var errs []string
	if strings.HasPrefix(c.DatabaseURL, "sqlite:") {
		errs = append(errs, "sqlite DATABASE_URL is not allowed in production")
	}
	switch security.HashAlgorithm(c.HashAlgorithm) {
	case security.HashArgon2id, security.HashArgon2i:
		if c.HashMemoryCost < 19*1024 {
			errs = append(errs, "HASH_MEMORY_COST must be at least 19456 KiB in production")
		}
	case security.HashBcrypt:
		if c.HashCost < 10 {
			errs = append(errs, "HASH_COST must be at least 10 in production")
		}
	}
	if c.AuthPasswordMinLength < 8 {
		errs = append(errs, "AUTH_PASSWORD_MIN_LENGTH must be at least 8 in production")
	}
	if c.AuthResetTokenTTL > 24*time.Hour {
		errs = append(errs, "AUTH_RESET_TOKEN_TTL must not exceed 24h in production")
	}
	if !c.AuthAbuseProtection {
		errs = append(errs, "AUTH_ABUSE_PROTECTION_ENABLED must be true in production")
	}
	if c.NotifierRevealTokens {
		errs = append(errs, "NOTIFIER_REVEAL_TOKENS must be false in production")
	}
	return errs
}

func clampUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	if uint64(v) > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}

func clampUint8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func isLocalLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development", "dev", "local", "test":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
