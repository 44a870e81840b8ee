package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "lumina"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LUMINA_DB_DSN"
	EnvDBHost = "LUMINA_DB_HOST"
	EnvDBUser = "LUMINA_DB_USER"
	EnvDBName = "LUMINA_DB_NAME"
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
	AdminSeed     AdminSeedConfig
	OAuth         OAuthConfig
	Stripe        StripeConfig
	Checkout      CheckoutConfig
	Vision        VisionConfig
	Cloudinary    CloudinaryConfig
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
	Env          string `envconfig:"LUMINA_APP_ENV" required:"true"`
	Port         string `envconfig:"LUMINA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LUMINA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LUMINA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LUMINA_DB_DSN"`
	Driver string `envconfig:"LUMINA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LUMINA_DB_HOST"`
	LegacyPort     int    `envconfig:"LUMINA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LUMINA_DB_USER"`
	LegacyPassword string `envconfig:"LUMINA_DB_PASSWORD"`
	LegacyName     string `envconfig:"LUMINA_DB_NAME"`
	LegacySSLMode  string `envconfig:"LUMINA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUMINA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUMINA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUMINA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUMINA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LUMINA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LUMINA_REDIS_ADDR"`
	Password     string        `envconfig:"LUMINA_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUMINA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUMINA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUMINA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUMINA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUMINA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUMINA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LUMINA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LUMINA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LUMINA_JWT_EXPIRATION_MINUTES" default:"10080"`
	SessionTTLMinutes int    `envconfig:"LUMINA_OAUTH_SESSION_TTL_MINUTES" default:"10080"`
}

// SessionTTL returns the hosted-OAuth session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LUMINA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LUMINA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LUMINA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LUMINA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LUMINA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LUMINA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LUMINA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LUMINA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LUMINA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LUMINA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LUMINA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"LUMINA_AUTO_MIGRATE" default:"false"`
	SeedAdminUser bool `envconfig:"LUMINA_SEED_ADMIN_USER" default:"true"`
}

type AdminSeedConfig struct {
	Email    string `envconfig:"LUMINA_ADMIN_SEED_EMAIL" default:"admin@lumina.com"`
	Password string `envconfig:"LUMINA_ADMIN_SEED_PASSWORD" default:"admin123"`
	Name     string `envconfig:"LUMINA_ADMIN_SEED_NAME" default:"Admin"`
}

// OAuthConfig points at the hosted auth broker that resolves short-lived
// session IDs into user profiles.
type OAuthConfig struct {
	SessionDataURL string `envconfig:"LUMINA_OAUTH_SESSION_DATA_URL"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"LUMINA_STRIPE_API_KEY"`
	Secret   string `envconfig:"LUMINA_STRIPE_SECRET"`
	Env      string `envconfig:"LUMINA_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"LUMINA_STRIPE_CURRENCY" default:"eur"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	PollMaxAttempts int           `envconfig:"LUMINA_CHECKOUT_POLL_MAX_ATTEMPTS" default:"5"`
	PollInterval    time.Duration `envconfig:"LUMINA_CHECKOUT_POLL_INTERVAL" default:"2s"`
}

type VisionConfig struct {
	BaseURL       string `envconfig:"LUMINA_VISION_BASE_URL"`
	APIKey        string `envconfig:"LUMINA_VISION_API_KEY"`
	Model         string `envconfig:"LUMINA_VISION_MODEL" default:"gemini-3-flash-preview"`
	MinConfidence int    `envconfig:"LUMINA_VISION_MIN_CONFIDENCE" default:"50"`
	MaxResults    int    `envconfig:"LUMINA_VISION_MAX_RESULTS" default:"50"`
}

type CloudinaryConfig struct {
	CloudName string `envconfig:"LUMINA_CLOUDINARY_CLOUD_NAME"`
	APIKey    string `envconfig:"LUMINA_CLOUDINARY_API_KEY"`
	APISecret string `envconfig:"LUMINA_CLOUDINARY_API_SECRET"`
	Folder    string `envconfig:"LUMINA_CLOUDINARY_FOLDER" default:"lumina/events"`
}

// Enabled reports whether the CDN credentials are fully configured.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
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
