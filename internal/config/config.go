package config

import (
	"fmt"
	"strings"
)

// Config holds all configuration for the file handler service
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Component configurations
	RabbitMQ RabbitMQConfig
	Intake   IntakeConfig
	Database DatabaseConfig
	Metrics  MetricsConfig
}

// RabbitMQConfig holds broker connection settings
type RabbitMQConfig struct {
	URL           string
	Queue         string
	PrefetchCount int
}

// IntakeConfig holds the worker pool and output settings
type IntakeConfig struct {
	// Workers is the number of long-lived processing goroutines
	Workers int
	// QueueCapacity is the fixed size of the in-process task queue
	QueueCapacity int
	// OutputRoot is the directory all extracted/relocated files land under
	OutputRoot string
}

// DatabaseConfig holds Postgres settings for the optional job-outcome store
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Connection pool
	MaxOpenConns int
	MaxIdleConns int
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}
	if c.RabbitMQ.URL == "" {
		errors = append(errors, "RABBITMQ_URL is required")
	}
	if c.RabbitMQ.Queue == "" {
		errors = append(errors, "RABBITMQ_QUEUE is required")
	}
	if c.RabbitMQ.PrefetchCount < 0 {
		errors = append(errors, "RABBITMQ_PREFETCH_COUNT cannot be negative")
	}
	if c.Intake.Workers <= 0 {
		errors = append(errors, "INTAKE_WORKERS must be positive")
	}
	if c.Intake.QueueCapacity <= 0 {
		errors = append(errors, "INTAKE_QUEUE_CAPACITY must be positive")
	}
	if c.Intake.OutputRoot == "" {
		errors = append(errors, "INTAKE_OUTPUT_ROOT is required")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errors = append(errors, "DB_HOST is required when DB_ENABLED is true")
		}
		if c.Database.Database == "" {
			errors = append(errors, "DB_NAME is required when DB_ENABLED is true")
		}
		if c.Database.Username == "" {
			errors = append(errors, "DB_USER is required when DB_ENABLED is true")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errors = append(errors, "METRICS_ADDR is required when METRICS_ENABLED is true")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Environment detection methods

func (c *Config) IsLocal() bool {
	env := strings.ToLower(c.Environment)
	return env == "local" || env == "development" || env == "dev"
}

func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

func (c *Config) IsTest() bool {
	env := strings.ToLower(c.Environment)
	return env == "test" || env == "testing"
}
