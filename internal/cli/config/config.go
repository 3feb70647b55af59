package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/projector/internal/inflect"
	"github.com/conduit-lang/projector/internal/logging"
)

// FileName is the configuration file name, without extension
const FileName = "projector"

// EnvPrefix prefixes environment overrides (PROJECTOR_SERVER_PORT, ...)
const EnvPrefix = "PROJECTOR"

// Config represents the projector configuration
type Config struct {
	Serializer SerializerConfig `mapstructure:"serializer"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        logging.Config   `mapstructure:"log"`
	// Seed is an optional YAML fixture loaded into the catalog at startup
	Seed string `mapstructure:"seed"`
}

// SerializerConfig represents document projection settings
type SerializerConfig struct {
	MaxDepth     int    `mapstructure:"max_depth"`
	SystemType   string `mapstructure:"system_type"`
	Links        bool   `mapstructure:"links"`
	KeyTransform string `mapstructure:"key_transform"`
}

// CacheConfig represents fragment cache settings
type CacheConfig struct {
	// Backend is one of none, memory, redis
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
}

// RedisConfig represents redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	// Driver is one of sqlite3, postgres, pgx
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads the configuration from projector.yml or projector.yaml in the
// working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration from dir
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serializer.max_depth", 2)
	v.SetDefault("serializer.system_type", "")
	v.SetDefault("serializer.links", true)
	v.SetDefault("serializer.key_transform", "none")

	v.SetDefault("cache.backend", "none")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.prefix", "projector:")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.disabled", false)

	v.SetDefault("seed", "")
}

// DatabaseURL returns the database URL. DATABASE_URL in the environment
// takes precedence over database.url.
func (c *Config) DatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return c.Database.URL
}

// FindConfigFile walks up from the working directory looking for
// projector.yml or projector.yaml
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			path := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found", FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Serializer.MaxDepth < 0 {
		return fmt.Errorf("serializer.max_depth must not be negative, got: %d", cfg.Serializer.MaxDepth)
	}
	if _, err := inflect.ParseTransform(cfg.Serializer.KeyTransform); err != nil {
		return fmt.Errorf("serializer.key_transform: %w", err)
	}

	switch cfg.Cache.Backend {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be one of none, memory, redis, got: %s", cfg.Cache.Backend)
	}

	switch cfg.Database.Driver {
	case "sqlite3", "postgres", "pgx":
	default:
		return fmt.Errorf("database.driver must be one of sqlite3, postgres, pgx, got: %s", cfg.Database.Driver)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}
	return nil
}
