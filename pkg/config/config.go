package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable consumed by the tracker.
	EnvPrefix = "VENDAFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv    = "VENDAFLOW_APP_ENV"
	EnvPort      = "VENDAFLOW_APP_PORT"
	EnvDBDSN     = "VENDAFLOW_DB_DSN"
	EnvDBHost    = "VENDAFLOW_DB_HOST"
	EnvDBUser    = "VENDAFLOW_DB_USER"
	EnvDBName    = "VENDAFLOW_DB_NAME"
	EnvRedisURL  = "VENDAFLOW_REDIS_URL"
	EnvJWTSecret = "VENDAFLOW_JWT_SECRET"
	EnvJWTIssuer = "VENDAFLOW_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Sessions     SessionsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDAFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDAFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDAFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDAFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDAFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDAFLOW_DB_DSN"`
	Driver string `envconfig:"VENDAFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDAFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDAFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDAFLOW_DB_USER"`
	LegacyPassword string `envconfig:"VENDAFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDAFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDAFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDAFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDAFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDAFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDAFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDAFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDAFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"VENDAFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDAFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDAFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDAFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDAFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDAFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDAFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig guards the recovery feed; the public tracking endpoints are
// intentionally unauthenticated.
type JWTConfig struct {
	Secret            string `envconfig:"VENDAFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDAFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDAFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SessionsConfig tunes the abandonment state machine.
type SessionsConfig struct {
	// AbandonAfter is the inactivity window after which an active session is
	// reclassified as abandoned.
	AbandonAfter time.Duration `envconfig:"VENDAFLOW_SESSIONS_ABANDON_AFTER" default:"30m"`
	// ExpireAfter is how long an abandoned session stays recoverable before
	// it is closed out as expired.
	ExpireAfter time.Duration `envconfig:"VENDAFLOW_SESSIONS_EXPIRE_AFTER" default:"168h"`
	// ReclassifyBatchSize caps how many rows each cron cycle touches.
	ReclassifyBatchSize int `envconfig:"VENDAFLOW_SESSIONS_RECLASSIFY_BATCH" default:"500"`
	// CronInterval is the cadence of the reclassification worker.
	CronInterval time.Duration `envconfig:"VENDAFLOW_SESSIONS_CRON_INTERVAL" default:"5m"`
}

type RateLimitConfig struct {
	TrackingWindow      time.Duration `envconfig:"VENDAFLOW_RATE_LIMIT_TRACKING_WINDOW" default:"1m"`
	TrackingIPLimit     int           `envconfig:"VENDAFLOW_RATE_LIMIT_TRACKING_IP_LIMIT" default:"120"`
	TrackingTenantLimit int           `envconfig:"VENDAFLOW_RATE_LIMIT_TRACKING_TENANT_LIMIT" default:"600"`
}

type CORSConfig struct {
	// AllowedOrigins defaults to * because the tracking endpoints serve
	// arbitrary storefront domains.
	AllowedOrigins []string `envconfig:"VENDAFLOW_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDAFLOW_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
