// Package config resolves TraceScribe settings from flags, environment and an optional file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/client"
	"github.com/aretw0/tracescribe/pkg/persistence/middleware"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TRACESCRIBE_API_URL.
const EnvPrefix = "TRACESCRIBE"

// Artifact storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the resolved application configuration.
type Config struct {
	APIURL    string    `mapstructure:"api_url"`
	LogLevel  string    `mapstructure:"log_level"`
	Artifacts Artifacts `mapstructure:"artifacts"`
	Serve     Serve     `mapstructure:"serve"`
}

// Artifacts selects where formatted documents are held until download.
type Artifacts struct {
	Backend  string        `mapstructure:"backend"`
	Dir      string        `mapstructure:"dir"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`

	// EncryptionKey is a base64 AES-256 key. When set, artifact contents are encrypted
	// before they reach the backend. FallbackKeys decrypt artifacts written before a rotation.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
}

// Serve configures the HTTP surface.
type Serve struct {
	Addr        string        `mapstructure:"addr"`
	SessionIdle time.Duration `mapstructure:"session_idle"`
}

// SetDefaults registers defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", client.DefaultBaseURL)
	v.SetDefault("log_level", "info")
	v.SetDefault("artifacts.backend", BackendMemory)
	v.SetDefault("artifacts.dir", filepath.Join(os.TempDir(), "tracescribe", "artifacts"))
	v.SetDefault("artifacts.redis_url", "redis://localhost:6379/0")
	v.SetDefault("artifacts.ttl", 30*time.Minute)
	v.SetDefault("artifacts.encryption_key", "")
	v.SetDefault("artifacts.fallback_keys", []string{})
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.session_idle", 30*time.Minute)
}

// Init prepares v: defaults, environment binding and the config file search.
// cfgFile, when set, is used instead of the search path.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tracescribe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "tracescribe"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by decoding.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url must be an http(s) URL, got %q", c.APIURL)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.Artifacts.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("artifacts.backend must be one of memory, file, redis, got %q", c.Artifacts.Backend)
	}
	if c.Artifacts.TTL < 0 {
		return fmt.Errorf("artifacts.ttl must not be negative")
	}
	if c.Artifacts.EncryptionKey != "" {
		if _, err := middleware.ParseKeys(c.Artifacts.EncryptionKey, c.Artifacts.FallbackKeys); err != nil {
			return fmt.Errorf("artifacts.%w", err)
		}
	}
	return nil
}
