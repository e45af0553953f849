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
	HTTP          HTTPConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	OAuth         OAuthConfig
	FeatureFlags  FeatureFlagsConfig
	Seed          SeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GEMVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"GEMVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GEMVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GEMVAULT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"GEMVAULT_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type HTTPConfig struct {
	ReadTimeout     time.Duration `envconfig:"GEMVAULT_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"GEMVAULT_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"GEMVAULT_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxUploadMB     int           `envconfig:"GEMVAULT_HTTP_MAX_UPLOAD_MB" default:"10"`
}

type DBConfig struct {
	DSN    string `envconfig:"GEMVAULT_DB_DSN"`
	Driver string `envconfig:"GEMVAULT_DB_DRIVER" default:"postgres"`

	SQLitePath string `envconfig:"GEMVAULT_SQLITE_PATH" default:"gemvault.db"`

	Host     string `envconfig:"GEMVAULT_DB_HOST"`
	Port     int    `envconfig:"GEMVAULT_DB_PORT" default:"5432"`
	User     string `envconfig:"GEMVAULT_DB_USER"`
	Password string `envconfig:"GEMVAULT_DB_PASSWORD"`
	Name     string `envconfig:"GEMVAULT_DB_NAME"`
	SSLMode  string `envconfig:"GEMVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GEMVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GEMVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GEMVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GEMVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"GEMVAULT_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GEMVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GEMVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"GEMVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"GEMVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GEMVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GEMVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GEMVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEMVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GEMVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GEMVAULT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GEMVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GEMVAULT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GEMVAULT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL is the lifetime of a minted access token.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GEMVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GEMVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GEMVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GEMVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GEMVAULT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"GEMVAULT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"GEMVAULT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"GEMVAULT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type OAuthConfig struct {
	GoogleClientID     string        `envconfig:"GEMVAULT_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `envconfig:"GEMVAULT_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string        `envconfig:"GEMVAULT_GOOGLE_REDIRECT_URL"`
	StateTTL           time.Duration `envconfig:"GEMVAULT_OAUTH_STATE_TTL" default:"10m"`
}

// GoogleEnabled reports whether the Google provider has credentials.
func (o OAuthConfig) GoogleEnabled() bool {
	return o.GoogleClientID != "" && o.GoogleClientSecret != "" && o.GoogleRedirectURL != ""
}

type FeatureFlagsConfig struct {
	UseSQLite      bool          `envconfig:"GEMVAULT_USE_SQLITE" default:"false"`
	AutoMigrate    bool          `envconfig:"GEMVAULT_AUTO_MIGRATE" default:"false"`
	IdempotencyTTL time.Duration `envconfig:"GEMVAULT_IDEMPOTENCY_TTL" default:"24h"`
}

type SeedConfig struct {
	AdminEmail      string `envconfig:"GEMVAULT_SEED_ADMIN_EMAIL" default:"admin@piedras.com"`
	AdminPassword   string `envconfig:"GEMVAULT_SEED_ADMIN_PASSWORD"`
	AuditorEmail    string `envconfig:"GEMVAULT_SEED_AUDITOR_EMAIL" default:"auditor@piedras.com"`
	AuditorPassword string `envconfig:"GEMVAULT_SEED_AUDITOR_PASSWORD"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	discreteValues := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if discreteValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
