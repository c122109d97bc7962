package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the backend reads.
const EnvPrefix = "registra"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Pricing      PricingConfig
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
	Env          string `envconfig:"REGISTRA_APP_ENV" required:"true"`
	Port         string `envconfig:"REGISTRA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"REGISTRA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"REGISTRA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"REGISTRA_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"REGISTRA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"REGISTRA_DB_DSN"`
	Driver string `envconfig:"REGISTRA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"REGISTRA_DB_HOST"`
	Port     int    `envconfig:"REGISTRA_DB_PORT" default:"5432"`
	User     string `envconfig:"REGISTRA_DB_USER"`
	Password string `envconfig:"REGISTRA_DB_PASSWORD"`
	Name     string `envconfig:"REGISTRA_DB_NAME"`
	SSLMode  string `envconfig:"REGISTRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REGISTRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REGISTRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REGISTRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REGISTRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REGISTRA_REDIS_URL"`
	Address      string        `envconfig:"REGISTRA_REDIS_ADDR"`
	Password     string        `envconfig:"REGISTRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"REGISTRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REGISTRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REGISTRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REGISTRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REGISTRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REGISTRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PricingConfig struct {
	CacheTTL time.Duration `envconfig:"REGISTRA_PRICING_CACHE_TTL" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"REGISTRA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	discrete := map[string]string{
		"REGISTRA_DB_HOST": db.Host,
		"REGISTRA_DB_USER": db.User,
		"REGISTRA_DB_NAME": db.Name,
	}
	for _, env := range []string{"REGISTRA_DB_HOST", "REGISTRA_DB_USER", "REGISTRA_DB_NAME"} {
		if discrete[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either REGISTRA_DB_DSN or %s are required", strings.Join(missing, ", "))
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
