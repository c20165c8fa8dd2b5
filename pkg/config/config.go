package config

import (
	"time"
)

type DB struct {
	// Driver selects the GORM dialector: postgres or sqlite.
	Driver      string `envconfig:"DRIVER" default:"postgres"`
	Url         string `envconfig:"URL"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	MaxConns    int    `envconfig:"MAX_CONNS" default:"25"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:""`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type Kafka struct {
	Brokers string `envconfig:"BROKERS" default:"localhost:9092"`
	GroupID string `envconfig:"GROUP_ID" default:"presale"`
	Topic   string `envconfig:"TOPIC" default:"presale.events"`
}

type EventBus struct {
	// Driver is one of memory, redis, kafka.
	Driver string `envconfig:"DRIVER" default:"memory"`
}

// DefaultProgressCacheTTL applies when PROGRESS_CACHE_TTL is unset or zero.
const DefaultProgressCacheTTL = 30 * time.Second

type ProgressCache struct {
	// Driver is one of none, memory, redis.
	Driver string        `envconfig:"DRIVER" default:"memory"`
	TTL    time.Duration `envconfig:"TTL" default:"30s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

//revive:disable

type Stripe struct {
	ApiKey        string        `envconfig:"API_KEY"`
	SigningSecret string        `envconfig:"SIGNING_SECRET"`
	Tolerance     time.Duration `envconfig:"TOLERANCE" default:"5m"`
}

type Simulated struct {
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET"`
	Tolerance     time.Duration `envconfig:"TOLERANCE" default:"5m"`
}

type PaymentProvider struct {
	// Driver is one of simulated, stripe.
	Driver    string        `envconfig:"DRIVER" default:"simulated"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"15s"`
	Stripe    *Stripe       `envconfig:"STRIPE"`
	Simulated *Simulated    `envconfig:"SIMULATED"`
}

type Reconciliation struct {
	Enabled      bool   `envconfig:"ENABLED" default:"true"`
	Schedule     string `envconfig:"SCHEDULE" default:"0 2 * * *"`
	Concurrency  int    `envconfig:"CONCURRENCY" default:"4"`
	TriggerToken string `envconfig:"TRIGGER_TOKEN"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[presale]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env             string           `envconfig:"APP_ENV" default:"development"`
	Server          *Server          `envconfig:"SERVER"`
	Log             *Log             `envconfig:"LOG"`
	DB              *DB              `envconfig:"DATABASE"`
	Redis           *Redis           `envconfig:"REDIS"`
	Kafka           *Kafka           `envconfig:"KAFKA"`
	EventBus        *EventBus        `envconfig:"EVENTBUS"`
	ProgressCache   *ProgressCache   `envconfig:"PROGRESS_CACHE"`
	RateLimit       *RateLimit       `envconfig:"RATE_LIMIT"`
	PaymentProvider *PaymentProvider `envconfig:"PAYMENT_PROVIDER"`
	Reconciliation  *Reconciliation  `envconfig:"RECONCILIATION"`
}
