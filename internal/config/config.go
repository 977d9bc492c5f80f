package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

// Defaults for the bootstrapped admin account. The password default is
// intentionally permissive; operators are expected to rotate it and the
// bootstrap logs a warning until they do.
const (
	DefaultAdminEmail    = "admin@conatoc.net"
	DefaultAdminPassword = "ChangeMeNow!"
)

// MinPasswordLength is the registration password policy. The bootstrap
// admin password is exempt (warning only).
const MinPasswordLength = 8

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	DatabaseURL string
	SecretKey   string

	AdminEmail    string
	AdminPassword string

	SharedMemberEmail    string
	SharedMemberPassword string

	InviteCode    string
	InviteMaxUses int

	SessionTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UIDir             string
	ServiceName       string
	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool
}

// Load reads configuration from environment variables with sane
// defaults. It fails fast on anything that would leave authentication
// in a broken state: a missing database, a missing secret key, or a
// half-configured shared member account.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SecretKey:            strings.TrimSpace(os.Getenv("SECRET_KEY")),
		AdminEmail:           getEnv("ADMIN_EMAIL", DefaultAdminEmail),
		AdminPassword:        getEnv("ADMIN_PASSWORD", DefaultAdminPassword),
		SharedMemberEmail:    strings.TrimSpace(os.Getenv("SHARED_MEMBER_EMAIL")),
		SharedMemberPassword: os.Getenv("SHARED_MEMBER_PASSWORD"),
		InviteCode:           strings.TrimSpace(os.Getenv("INVITE_CODE")),
		InviteMaxUses:        getInt("INVITE_MAX_USES", 0),
		SessionTTL:           getDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:            strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		UIDir:                getEnv("UI_DIR", "ui/dist"),
		ServiceName:          getEnv("SERVICE_NAME", "conatoc-net"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%w: DATABASE_URL is required", domain.ErrConfiguration)
	}
	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("%w: SECRET_KEY is required to sign sessions", domain.ErrConfiguration)
	}
	if strings.TrimSpace(cfg.AdminEmail) == "" || strings.TrimSpace(cfg.AdminPassword) == "" {
		return Config{}, fmt.Errorf("%w: ADMIN_EMAIL and ADMIN_PASSWORD must not be blank", domain.ErrConfiguration)
	}
	if err := cfg.validateSharedLogin(); err != nil {
		return Config{}, err
	}
	if cfg.InviteMaxUses < 0 {
		return Config{}, fmt.Errorf("%w: INVITE_MAX_USES must not be negative", domain.ErrConfiguration)
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("%w: SESSION_TTL must be positive", domain.ErrConfiguration)
	}

	return cfg, nil
}

// SharedLoginEnabled reports whether the shared member fallback account
// is configured. Both variables must be present; this mode is never
// enabled implicitly.
func (c Config) SharedLoginEnabled() bool {
	return c.SharedMemberEmail != "" && c.SharedMemberPassword != ""
}

// RegistrationOpen reports whether invite-gated registration is
// available at all. Without a configured invite code, registration is
// closed outright.
func (c Config) RegistrationOpen() bool {
	return c.InviteCode != ""
}

func (c Config) validateSharedLogin() error {
	if (c.SharedMemberEmail == "") != (c.SharedMemberPassword == "") {
		return fmt.Errorf("%w: SHARED_MEMBER_EMAIL and SHARED_MEMBER_PASSWORD must be set together", domain.ErrConfiguration)
	}
	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
