package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                 = "GEMVAULT_APP_ENV"
	EnvPort                   = "GEMVAULT_APP_PORT"
	EnvDBDSN                  = "GEMVAULT_DB_DSN"
	EnvDBHost                 = "GEMVAULT_DB_HOST"
	EnvDBUser                 = "GEMVAULT_DB_USER"
	EnvDBName                 = "GEMVAULT_DB_NAME"
	EnvUseSQLite              = "GEMVAULT_USE_SQLITE"
	EnvRedisURL               = "GEMVAULT_REDIS_URL"
	EnvJWTSecret              = "GEMVAULT_JWT_SECRET"
	EnvJWTIssuer              = "GEMVAULT_JWT_ISSUER"
	EnvJWTExpMins             = "GEMVAULT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GEMVAULT_REFRESH_TOKEN_TTL_MINUTES"
	EnvGoogleClientID         = "GEMVAULT_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret     = "GEMVAULT_GOOGLE_CLIENT_SECRET"
	EnvGoogleRedirectURL      = "GEMVAULT_GOOGLE_REDIRECT_URL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
