package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Broker  BrokerConfig
	Sweep   SweepConfig
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
	Env          string `envconfig:"SEQSTAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"SEQSTAGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SEQSTAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SEQSTAGE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SEQSTAGE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SEQSTAGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SEQSTAGE_DB_DSN"`
	Driver string `envconfig:"SEQSTAGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SEQSTAGE_DB_HOST"`
	LegacyPort     int    `envconfig:"SEQSTAGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SEQSTAGE_DB_USER"`
	LegacyPassword string `envconfig:"SEQSTAGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SEQSTAGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SEQSTAGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SEQSTAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SEQSTAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SEQSTAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SEQSTAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SEQSTAGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SEQSTAGE_REDIS_ADDR"`
	Password     string        `envconfig:"SEQSTAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SEQSTAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SEQSTAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SEQSTAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SEQSTAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SEQSTAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SEQSTAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SEQSTAGE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SEQSTAGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SEQSTAGE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// BrokerConfig bounds the claim/lease parameters accepted over the API.
type BrokerConfig struct {
	DefaultLeaseMinutes int `envconfig:"SEQSTAGE_BROKER_DEFAULT_LEASE_MINUTES" default:"30"`
	MaxLeaseMinutes     int `envconfig:"SEQSTAGE_BROKER_MAX_LEASE_MINUTES" default:"180"`
	DefaultRenewMinutes int `envconfig:"SEQSTAGE_BROKER_DEFAULT_RENEW_MINUTES" default:"15"`
	DefaultPerTypeLimit int `envconfig:"SEQSTAGE_BROKER_DEFAULT_PER_TYPE_LIMIT" default:"100"`
	MaxPerTypeLimit     int `envconfig:"SEQSTAGE_BROKER_MAX_PER_TYPE_LIMIT" default:"1000"`
}

// SweepConfig controls the standalone lease-expiry worker.
type SweepConfig struct {
	Interval time.Duration `envconfig:"SEQSTAGE_SWEEP_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"SEQSTAGE_SWEEP_LOCK_TTL" default:"5m"`
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
