package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration, loaded once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Session  SessionConfig  `mapstructure:"session"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port     int   `mapstructure:"port"`
	WorkerID int64 `mapstructure:"worker_id"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Notifications string `mapstructure:"notifications"`
}

type SessionConfig struct {
	TTLMinutes int `mapstructure:"ttl_minutes"`
}

type BusinessConfig struct {
	TransferLockTimeoutMS int `mapstructure:"transfer_lock_timeout_ms"`
	RateLimitPerMinute    int `mapstructure:"rate_limit_per_minute"`
	MaxRetryCount         int `mapstructure:"max_retry_count"`
	OutboxRetentionDays   int `mapstructure:"outbox_retention_days"`
}

// TransferLockTimeout bounds how long a transfer may wait for its two
// account locks before it is rejected as busy.
func (c *BusinessConfig) TransferLockTimeout() time.Duration {
	if c.TransferLockTimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.TransferLockTimeoutMS) * time.Millisecond
}

// SessionTTL is how long an idle session token stays valid.
func (c *SessionConfig) SessionTTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

var GlobalConfig *Config

// LoadConfig reads and parses the yaml configuration file.
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	GlobalConfig = config
	return config
}
