// Package config loads service configuration from files and environment
// variables.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/crewfleet/billing-service/infrastructure/database/mongodb"
	"github.com/crewfleet/billing-service/infrastructure/email"
	"github.com/crewfleet/billing-service/infrastructure/pdf"
	"github.com/crewfleet/billing-service/infrastructure/storage"
)

// Config is the full billing-service configuration tree.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Mongo         mongodb.Config      `mapstructure:"mongo"`
	Storage       storage.Config      `mapstructure:"storage"`
	Email         email.Config        `mapstructure:"email"`
	PDF           pdf.Config          `mapstructure:"pdf"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Outbox        OutboxConfig        `mapstructure:"outbox"`
	Auth          AuthConfig          `mapstructure:"auth"`
	LogLevel      string              `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// NotificationsConfig carries outbound mail addressing.
type NotificationsConfig struct {
	OpsAddress   string        `mapstructure:"ops_address"`
	ProductionCc []string      `mapstructure:"production_cc"`
	TestingInbox string        `mapstructure:"testing_inbox"`
	PresignTTL   time.Duration `mapstructure:"presign_ttl"`
}

// OutboxConfig tunes the background notification dispatcher.
type OutboxConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// AuthConfig holds the JWT verification settings for the HTTP API.
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// Load reads billing.yaml from the given path (or the working directory)
// and overlays BILLING_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "crewfleet")
	v.SetDefault("mongo.connect_timeout", 10*time.Second)
	v.SetDefault("mongo.query_timeout", 15*time.Second)
	v.SetDefault("mongo.max_pool_size", 50)

	v.SetDefault("storage.bucket_prefix", "crewfleet")
	v.SetDefault("storage.bucket_env", "dev")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.production", false)

	v.SetDefault("notifications.presign_ttl", 1800*time.Second)

	v.SetDefault("outbox.interval", 30*time.Second)
	v.SetDefault("outbox.batch_size", 20)
	v.SetDefault("outbox.max_attempts", 5)

	v.SetDefault("log_level", "info")
}

func (c *Config) validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if c.Email.Sender == "" {
		return errors.New("email.sender is required")
	}
	return nil
}
