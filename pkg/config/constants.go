package config

const (
	EnvPrefix = "TRIPCREW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	DefaultSQLiteDSN = "tripcrew.db?_foreign_keys=on&_busy_timeout=5000"

	MinInviteCodeLength = 4
)

const (
	EnvAppEnv   = "TRIPCREW_APP_ENV"
	EnvPort     = "TRIPCREW_APP_PORT"
	EnvLogLevel = "TRIPCREW_LOG_LEVEL"

	EnvDBDSN    = "TRIPCREW_DB_DSN"
	EnvDBDriver = "TRIPCREW_DB_DRIVER"
	EnvDBHost   = "TRIPCREW_DB_HOST"
	EnvDBUser   = "TRIPCREW_DB_USER"
	EnvDBName   = "TRIPCREW_DB_NAME"

	EnvRedisURL = "TRIPCREW_REDIS_URL"

	EnvJWTSecret  = "TRIPCREW_JWT_SECRET"
	EnvJWTIssuer  = "TRIPCREW_JWT_ISSUER"
	EnvJWTExpMins = "TRIPCREW_JWT_EXPIRATION_MINUTES"

	EnvInviteCodeLength      = "TRIPCREW_TRIPS_INVITE_CODE_LENGTH"
	EnvInviteCodeAttempts    = "TRIPCREW_TRIPS_INVITE_CODE_ATTEMPTS"
	EnvEnforceVoteMembership = "TRIPCREW_TRIPS_ENFORCE_VOTE_MEMBERSHIP"

	EnvOutboxChannel = "TRIPCREW_OUTBOX_CHANNEL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
