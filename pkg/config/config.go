package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Password  PasswordConfig
	Checkout  CheckoutConfig
	Payout    PayoutConfig
	Fraud     FraudConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MEALMESH_APP_ENV" required:"true"`
	Port         string `envconfig:"MEALMESH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEALMESH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MEALMESH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MEALMESH_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"MEALMESH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEALMESH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEALMESH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEALMESH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"MEALMESH_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEALMESH_REDIS_URL"`
	Address      string        `envconfig:"MEALMESH_REDIS_ADDR"`
	Password     string        `envconfig:"MEALMESH_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEALMESH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEALMESH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEALMESH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEALMESH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEALMESH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEALMESH_REDIS_WRITE_TIMEOUT" default:"5s"`

	GuestCartTTL time.Duration `envconfig:"MEALMESH_GUEST_CART_TTL" default:"168h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MEALMESH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEALMESH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEALMESH_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MEALMESH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MEALMESH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MEALMESH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MEALMESH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MEALMESH_ARGON_KEY_LEN" default:"32"`
}

type CheckoutConfig struct {
	FreeDeliveryMinCents int64 `envconfig:"MEALMESH_FREE_DELIVERY_MIN_CENTS" default:"10000"`
	DeliveryFeeCents     int64 `envconfig:"MEALMESH_DELIVERY_FEE_CENTS" default:"2500"`
}

type PayoutConfig struct {
	DefaultCommissionRate string        `envconfig:"MEALMESH_DEFAULT_COMMISSION_RATE" default:"10"`
	EarlyRequestLookback  time.Duration `envconfig:"MEALMESH_PAYOUT_EARLY_LOOKBACK" default:"168h"`
}

type FraudConfig struct {
	MaxCancelled24h      int           `envconfig:"MEALMESH_FRAUD_MAX_CANCELLED_24H" default:"3"`
	MaxOrders1h          int           `envconfig:"MEALMESH_FRAUD_MAX_ORDERS_1H" default:"10"`
	MaxRejected7d        int           `envconfig:"MEALMESH_FRAUD_MAX_REJECTED_7D" default:"5"`
	AbnormalValueFactor  int           `envconfig:"MEALMESH_FRAUD_ABNORMAL_VALUE_FACTOR" default:"5"`
	CancelledWindow      time.Duration `envconfig:"MEALMESH_FRAUD_CANCELLED_WINDOW" default:"24h"`
	VelocityWindow       time.Duration `envconfig:"MEALMESH_FRAUD_VELOCITY_WINDOW" default:"1h"`
	RejectedWindow       time.Duration `envconfig:"MEALMESH_FRAUD_REJECTED_WINDOW" default:"168h"`
}

type RateLimitConfig struct {
	Window   time.Duration `envconfig:"MEALMESH_RATE_LIMIT_WINDOW" default:"1m"`
	Requests int           `envconfig:"MEALMESH_RATE_LIMIT_REQUESTS" default:"120"`

	AuthWindow   time.Duration `envconfig:"MEALMESH_AUTH_RATE_LIMIT_WINDOW" default:"15m"`
	AuthRequests int           `envconfig:"MEALMESH_AUTH_RATE_LIMIT_REQUESTS" default:"10"`
}

// Auth returns the tighter policy applied to credential endpoints.
func (r RateLimitConfig) Auth() RateLimitConfig {
	return RateLimitConfig{Window: r.AuthWindow, Requests: r.AuthRequests}
}
