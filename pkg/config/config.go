package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Trips         TripsConfig
	JoinRateLimit JoinRateLimitConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Trips.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRIPCREW_APP_ENV" required:"true"`
	Port         string `envconfig:"TRIPCREW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TRIPCREW_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TRIPCREW_LOG_FORMAT"`
	LogWarnStack bool   `envconfig:"TRIPCREW_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"TRIPCREW_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TRIPCREW_DB_DSN"`
	Driver string `envconfig:"TRIPCREW_DB_DRIVER" default:"sqlite"`

	LegacyHost     string `envconfig:"TRIPCREW_DB_HOST"`
	LegacyPort     int    `envconfig:"TRIPCREW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRIPCREW_DB_USER"`
	LegacyPassword string `envconfig:"TRIPCREW_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRIPCREW_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRIPCREW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRIPCREW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRIPCREW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRIPCREW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRIPCREW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"TRIPCREW_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

// IsSQLite reports whether the embedded single-writer store is configured.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// IsPostgres reports whether a Postgres server is configured.
func (db DBConfig) IsPostgres() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverPostgres)
}

// RedisConfig is optional; an empty URL and address disables redis-backed features.
type RedisConfig struct {
	URL          string        `envconfig:"TRIPCREW_REDIS_URL"`
	Address      string        `envconfig:"TRIPCREW_REDIS_ADDR"`
	Password     string        `envconfig:"TRIPCREW_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRIPCREW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRIPCREW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRIPCREW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRIPCREW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRIPCREW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRIPCREW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"TRIPCREW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRIPCREW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRIPCREW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRIPCREW_AUTO_MIGRATE" default:"false"`
}

type TripsConfig struct {
	InviteCodeLength      int  `envconfig:"TRIPCREW_TRIPS_INVITE_CODE_LENGTH" default:"6"`
	InviteCodeAttempts    int  `envconfig:"TRIPCREW_TRIPS_INVITE_CODE_ATTEMPTS" default:"5"`
	EnforceVoteMembership bool `envconfig:"TRIPCREW_TRIPS_ENFORCE_VOTE_MEMBERSHIP" default:"true"`
}

func (t TripsConfig) validate() error {
	if t.InviteCodeLength < MinInviteCodeLength {
		return fmt.Errorf("%s must be at least %d", EnvInviteCodeLength, MinInviteCodeLength)
	}
	if t.InviteCodeAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvInviteCodeAttempts)
	}
	return nil
}

type JoinRateLimitConfig struct {
	Window    time.Duration `envconfig:"TRIPCREW_JOIN_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit   int           `envconfig:"TRIPCREW_JOIN_RATE_LIMIT_IP_LIMIT" default:"30"`
	UserLimit int           `envconfig:"TRIPCREW_JOIN_RATE_LIMIT_USER_LIMIT" default:"10"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"TRIPCREW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"TRIPCREW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"TRIPCREW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Channel        string `envconfig:"TRIPCREW_OUTBOX_CHANNEL" default:"tripcrew:trip-events"`
	MetricsAddr    string `envconfig:"TRIPCREW_OUTBOX_METRICS_ADDR" default:":9090"`

	DedupeTTL time.Duration `envconfig:"TRIPCREW_OUTBOX_DEDUPE_TTL" default:"24h"`
}

// PollInterval returns the configured poll interval as a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 0
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN() error {
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	switch driver {
	case DBDriverSQLite:
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	case DBDriverPostgres:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DBDriverSQLite, DBDriverPostgres, db.Driver)
	}

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
