// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from the environment.
type Config struct {
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	StorageRoot              string `mapstructure:"STORAGE_ROOT"`
	BindAddr                 string `mapstructure:"BIND_ADDR"`
	DefaultAdminEmail        string `mapstructure:"DEFAULT_ADMIN_EMAIL"`
	DefaultAdminUsername     string `mapstructure:"DEFAULT_ADMIN_USERNAME"`
	DefaultAdminPassword     string `mapstructure:"DEFAULT_ADMIN_PASSWORD"`
	DownloadApprovalTTLHours int    `mapstructure:"DOWNLOAD_APPROVAL_TTL_HOURS"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	Env                      string `mapstructure:"APP_ENV"`
}

// LoadConfig loads application configuration from environment variables.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("STORAGE_ROOT", "../data/documents")
	viper.SetDefault("BIND_ADDR", "127.0.0.1:8752")
	viper.SetDefault("DEFAULT_ADMIN_EMAIL", "admin@docvault.local")
	viper.SetDefault("DEFAULT_ADMIN_USERNAME", "admin")
	viper.SetDefault("DEFAULT_ADMIN_PASSWORD", "admin123")
	viper.SetDefault("DOWNLOAD_APPROVAL_TTL_HOURS", 24)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("APP_ENV", "development")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet
// security standards.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction {
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DefaultAdminPassword == "admin123" {
			log.Println("WARNING: DEFAULT_ADMIN_PASSWORD is the default value in production. Change it.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// ApprovalTTL returns the lifetime of an approved download grant, clamped to
// at least one hour.
func (c *Config) ApprovalTTL() time.Duration {
	hours := c.DownloadApprovalTTLHours
	if hours < 1 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}
