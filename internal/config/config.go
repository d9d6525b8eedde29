package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port             string
	DatabaseDSN      string
	RetentionHours   int
	TopicCatalogURL  string
	TopicTTLMinutes  int
	MaxArtifactBytes int
	RateLimitPerSec  float64
	RateBurst        int
}

func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func (c Config) TopicTTL() time.Duration {
	return time.Duration(c.TopicTTLMinutes) * time.Minute
}

// Load reads an optional config.yaml from the working directory with
// environment variables taking precedence (PORT, DATABASE_DSN, ...).
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_dsn", "")
	v.SetDefault("retention_hours", 24)
	v.SetDefault("topic_catalog_url", "")
	v.SetDefault("topic_ttl_minutes", 60)
	v.SetDefault("max_artifact_bytes", 1<<20)
	v.SetDefault("rate_limit_per_sec", 50.0)
	v.SetDefault("rate_burst", 100)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	return Config{
		Port:             v.GetString("port"),
		DatabaseDSN:      v.GetString("database_dsn"),
		RetentionHours:   v.GetInt("retention_hours"),
		TopicCatalogURL:  v.GetString("topic_catalog_url"),
		TopicTTLMinutes:  v.GetInt("topic_ttl_minutes"),
		MaxArtifactBytes: v.GetInt("max_artifact_bytes"),
		RateLimitPerSec:  v.GetFloat64("rate_limit_per_sec"),
		RateBurst:        v.GetInt("rate_burst"),
	}, nil
}
