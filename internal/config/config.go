package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	Database    DatabaseConfig
	Remote      RemoteConfig
	RabbitMQ    RabbitMQConfig
	Sync        SyncConfig
}

// DatabaseConfig holds central store connection settings
type DatabaseConfig struct {
	URL string
}

// RemoteConfig holds shared BMS database connection settings.
// Credentials are shared across all stores; only host and schema differ per store.
type RemoteConfig struct {
	User                  string
	Password              string
	Port                  int
	DomainSuffix          string
	MaxOpenConns          int
	ConnectTimeoutSeconds int
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL               string
	TriggerExchange   string
	TriggerQueue      string
	TriggerRoutingKey string
	EventsExchange    string
	EventsRoutingKey  string
	DLQQueue          string
	PrefetchCount     int
}

// SyncConfig holds orchestration settings
type SyncConfig struct {
	// FullSyncCron is a cron expression for scheduled full syncs.
	// Empty disables the scheduler; syncs then run only on trigger messages.
	FullSyncCron string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "jetline-machines-automation"),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Remote: RemoteConfig{
			User:                  getEnv("BMS_DB_USER", "fortyone"),
			Password:              getEnv("BMS_DB_PASSWORD", ""),
			Port:                  getEnvAsInt("BMS_DB_PORT", 3306),
			DomainSuffix:          getEnv("BMS_DOMAIN_SUFFIX", "jetlinestores.co.za"),
			MaxOpenConns:          getEnvAsInt("BMS_MAX_OPEN_CONNS", 5),
			ConnectTimeoutSeconds: getEnvAsInt("BMS_CONNECT_TIMEOUT_SECONDS", 30),
		},
		RabbitMQ: RabbitMQConfig{
			URL:               getEnv("RABBITMQ_URL", ""),
			TriggerExchange:   getEnv("RABBITMQ_TRIGGER_EXCHANGE", "machines.sync.trigger.exchange"),
			TriggerQueue:      getEnv("RABBITMQ_TRIGGER_QUEUE", "machines.sync.trigger.queue"),
			TriggerRoutingKey: getEnv("RABBITMQ_TRIGGER_ROUTING_KEY", "machines.sync.requested"),
			EventsExchange:    getEnv("RABBITMQ_EVENTS_EXCHANGE", "machines.sync.events.exchange"),
			EventsRoutingKey:  getEnv("RABBITMQ_EVENTS_ROUTING_KEY", "machines.sync.completed"),
			DLQQueue:          getEnv("RABBITMQ_DLQ_QUEUE", "machines.sync.trigger.dlq"),
			PrefetchCount:     getEnvAsInt("RABBITMQ_PREFETCH", 1),
		},
		Sync: SyncConfig{
			FullSyncCron: getEnv("SYNC_FULL_CRON", ""),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	if cfg.Remote.Password == "" {
		return nil, fmt.Errorf("BMS_DB_PASSWORD is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
