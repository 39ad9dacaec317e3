// Package config loads the YAML configuration file and applies environment
// variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/billingd/internal/messaging"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AWS      AWSConfig      `yaml:"aws"`
	Events   EventsConfig   `yaml:"events"`
	Worker   WorkerConfig   `yaml:"worker"`
	Redis    RedisConfig    `yaml:"redis"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Environment     string `yaml:"environment"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// ShutdownTimeout returns how long graceful shutdown may take.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}

// DatabaseConfig holds the relational store settings. Backend selects the
// implementation: "postgres" (database/sql) or "gorm". Both speak to the
// same schema.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	Backend      string `yaml:"backend"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// AWSConfig holds the messaging transport settings. EndpointURL points the
// SDK at LocalStack for local development; leave it empty for real AWS.
type AWSConfig struct {
	Region      string `yaml:"region"`
	EndpointURL string `yaml:"endpoint_url"`
	TopicARN    string `yaml:"topic_arn"`
}

// EventsConfig maps event types to the SQS queue each one is consumed from.
// Event types without a queue URL are simply not consumed by this worker.
type EventsConfig struct {
	Queues map[string]string `yaml:"queues"`
}

// WorkerConfig tunes the queue consumers.
type WorkerConfig struct {
	MaxMessages         int `yaml:"max_messages"`
	WaitTimeSeconds     int `yaml:"wait_time_seconds"`
	ErrorBackoffSeconds int `yaml:"error_backoff_seconds"`
	IdempotencyTTLHours int `yaml:"idempotency_ttl_hours"`
}

// RedisConfig holds the idempotency guard store. An empty Addr disables the
// guard; the handlers are idempotent without it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.ShutdownSeconds == 0 {
		cfg.Server.ShutdownSeconds = 15
	}
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = "postgres"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Events.Queues == nil {
		cfg.Events.Queues = map[string]string{}
	}
	if cfg.Worker.MaxMessages == 0 {
		cfg.Worker.MaxMessages = 10
	}
	if cfg.Worker.WaitTimeSeconds == 0 {
		cfg.Worker.WaitTimeSeconds = 20
	}
	if cfg.Worker.ErrorBackoffSeconds == 0 {
		cfg.Worker.ErrorBackoffSeconds = 5
	}
	if cfg.Worker.IdempotencyTTLHours == 0 {
		cfg.Worker.IdempotencyTTLHours = 24
	}
}

// queueEnvVars maps the env var suffix for each consumable event type.
var queueEnvVars = map[string]string{
	"EVENT_QUEUE_URL_USER_CREATED":              messaging.EventUserCreated,
	"EVENT_QUEUE_URL_USER_UPDATED":              messaging.EventUserUpdated,
	"EVENT_QUEUE_URL_INVOICE_CREATED":           messaging.EventInvoiceCreated,
	"EVENT_QUEUE_URL_INVOICE_PAYMENT_REQUESTED": messaging.EventInvoicePaymentRequested,
	"EVENT_QUEUE_URL_INVOICE_PAID":              messaging.EventInvoicePaid,
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Server.Environment = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_BACKEND"); v != "" {
		cfg.Database.Backend = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ENDPOINT_URL"); v != "" {
		cfg.AWS.EndpointURL = v
	}
	if v := os.Getenv("SNS_TOPIC_ARN"); v != "" {
		cfg.AWS.TopicARN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	for envVar, eventType := range queueEnvVars {
		if v := os.Getenv(envVar); v != "" {
			cfg.Events.Queues[eventType] = v
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings that have no workable default.
func (cfg *Config) Validate() error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("config: database url is required (database.url or DATABASE_URL)")
	}
	if cfg.Database.Backend != "postgres" && cfg.Database.Backend != "gorm" {
		return fmt.Errorf("config: unknown database backend %q (want postgres or gorm)", cfg.Database.Backend)
	}
	return nil
}
