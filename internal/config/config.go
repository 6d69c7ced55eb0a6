package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// EnvPrefix prefixes every environment override, e.g. OUTBOX_DATABASE_DSN.
const EnvPrefix = "OUTBOX"

// ---- Root ----

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Relay      RelayConfig      `mapstructure:"relay"`
	Publisher  PublisherConfig  `mapstructure:"publisher"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
}

// ---- Leaf structs ----

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AdminToken      string        `mapstructure:"admin_token"` // empty disables the check
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=mysql postgres"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RelayConfig struct {
	Interval       time.Duration   `mapstructure:"interval" validate:"gt=0"`
	RunOnStart     bool            `mapstructure:"run_on_start"`
	BatchSize      int             `mapstructure:"batch_size" validate:"gt=0"`
	Concurrency    int             `mapstructure:"concurrency" validate:"gte=1"`
	MaxAttempts    int             `mapstructure:"max_attempts" validate:"gte=1"`
	Backoff        []time.Duration `mapstructure:"backoff" validate:"min=1,dive,gt=0"`
	PublishTimeout time.Duration   `mapstructure:"publish_timeout" validate:"gte=0"`
	ClaimLease     time.Duration   `mapstructure:"claim_lease" validate:"gte=0"`
}

type PublisherConfig struct {
	Type     string         `mapstructure:"type" validate:"oneof=kafka redis rabbitmq http"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Webhook  WebhookConfig  `mapstructure:"http"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
}

type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	AutoCreateTopic bool          `mapstructure:"auto_create_topic"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	StreamPrefix string        `mapstructure:"stream_prefix"`
	MaxLen       int64         `mapstructure:"max_len" validate:"gte=0"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type WebhookConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Path      string `mapstructure:"path"`
	TimeoutMs int    `mapstructure:"timeout_ms" validate:"gte=0"`
}

type BreakerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	FailThreshold int  `mapstructure:"fail_threshold" yaml:"fail_threshold" validate:"gte=0"`
	OpenForMs     int  `mapstructure:"open_for_ms"    yaml:"open_for_ms" validate:"gte=0"`
}

type ClickHouseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	PingTimeout  time.Duration `mapstructure:"ping_timeout"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type IngestConfig struct {
	Source string `mapstructure:"source" validate:"required"`
	Topic  string `mapstructure:"topic" validate:"required"`
}

// Load reads embedded defaults, merges user YAML (if provided and present),
// applies env overrides (OUTBOX_*) and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return Config{}, fmt.Errorf("merge %s: %w", path, err)
			}
		}
	}

	// env override (OUTBOX_*), nested keys use underscores
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the settings the selected publisher
// needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	p := c.Publisher
	switch {
	case p.Type == "kafka" && len(p.Kafka.Brokers) == 0:
		return errors.New("invalid config: publisher.kafka.brokers is required")
	case p.Type == "redis" && p.Redis.Addr == "":
		return errors.New("invalid config: publisher.redis.addr is required")
	case p.Type == "rabbitmq" && (p.RabbitMQ.URL == "" || p.RabbitMQ.Exchange == ""):
		return errors.New("invalid config: publisher.rabbitmq.url and exchange are required")
	case p.Type == "http" && p.Webhook.BaseURL == "":
		return errors.New("invalid config: publisher.http.base_url is required")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.DSN == "" {
		return errors.New("invalid config: clickhouse.dsn is required when enabled")
	}

	return nil
}
