package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BOLDREACH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BOLDREACH_DB_DSN"
	EnvDBHost = "BOLDREACH_DB_HOST"
	EnvDBUser = "BOLDREACH_DB_USER"
	EnvDBName = "BOLDREACH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	SMTP          SMTPConfig
	Shipments     ShipmentsConfig
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
	Env          string `envconfig:"BOLDREACH_APP_ENV" required:"true"`
	Port         string `envconfig:"BOLDREACH_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"BOLDREACH_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"BOLDREACH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOLDREACH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOLDREACH_DB_DSN"`
	Driver string `envconfig:"BOLDREACH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOLDREACH_DB_HOST"`
	LegacyPort     int    `envconfig:"BOLDREACH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOLDREACH_DB_USER"`
	LegacyPassword string `envconfig:"BOLDREACH_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOLDREACH_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOLDREACH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOLDREACH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOLDREACH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOLDREACH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOLDREACH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOLDREACH_REDIS_URL" required:"true"`
	Password     string        `envconfig:"BOLDREACH_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOLDREACH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOLDREACH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOLDREACH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOLDREACH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOLDREACH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOLDREACH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BOLDREACH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BOLDREACH_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BOLDREACH_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BOLDREACH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BOLDREACH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BOLDREACH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BOLDREACH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BOLDREACH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BOLDREACH_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"BOLDREACH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"BOLDREACH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"BOLDREACH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	ResetWindow     time.Duration `envconfig:"BOLDREACH_AUTH_RATE_LIMIT_RESET_WINDOW" default:"5m"`
	ResetEmailLimit int           `envconfig:"BOLDREACH_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit    int           `envconfig:"BOLDREACH_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BOLDREACH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BOLDREACH_AUTO_MIGRATE" default:"false"`
}

type SMTPConfig struct {
	Host     string `envconfig:"BOLDREACH_SMTP_HOST"`
	Port     int    `envconfig:"BOLDREACH_SMTP_PORT" default:"587"`
	Username string `envconfig:"BOLDREACH_SMTP_USER"`
	Password string `envconfig:"BOLDREACH_SMTP_PASS"`
	From     string `envconfig:"BOLDREACH_SMTP_FROM" default:"noreply@boldreachlogistics.com.ng"`
}

type ShipmentsConfig struct {
	DeliveryDateChunkSize int           `envconfig:"BOLDREACH_DELIVERY_DATE_CHUNK_SIZE" default:"100"`
	ExportMaxRows         int           `envconfig:"BOLDREACH_EXPORT_MAX_ROWS" default:"5000"`
	TrackingCacheTTL      time.Duration `envconfig:"BOLDREACH_TRACKING_CACHE_TTL" default:"30s"`
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
