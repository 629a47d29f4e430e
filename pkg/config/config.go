package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/edgeflare/feedview/pkg/readiness"
	"github.com/edgeflare/feedview/pkg/stream"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds application-wide configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Source    SourceConfig    `mapstructure:"source"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
}

// ServerConfig configures the feed API listener.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
	Enabled    bool   `mapstructure:"enabled"`
}

// SourceConfig selects the event source connector and its topics. Config
// carries connector-specific settings (brokers, auth, TLS) and is handed
// to the connector untouched.
type SourceConfig struct {
	Connector string         `mapstructure:"connector"`
	PostTopic string         `mapstructure:"postTopic"`
	UserTopic string         `mapstructure:"userTopic"`
	Config    map[string]any `mapstructure:"config"`
}

// ReadinessConfig tunes the replay gate.
type ReadinessConfig struct {
	QuietWindow time.Duration `mapstructure:"quietWindow"`
}

// ResolverConfig points at an optional user directory service consulted
// for authors whose user event has not arrived yet.
type ResolverConfig struct {
	URL string `mapstructure:"url"`
}

// Default returns the configuration used when no file or env overrides are set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9100",
			Enabled:    true,
		},
		Source: SourceConfig{
			Connector: stream.SourceKafka,
			PostTopic: "post_events",
			UserTopic: "user_lifecycle_events",
		},
		Readiness: ReadinessConfig{
			QuietWindow: readiness.DefaultQuietWindow,
		},
	}
}

// Topics returns the topics the consumer subscribes to.
func (c *Config) Topics() []string {
	return []string{c.Source.PostTopic, c.Source.UserTopic}
}

// SourceJSON renders the connector-specific settings as JSON for
// stream.Source.Connect.
func (c *Config) SourceJSON() (json.RawMessage, error) {
	if len(c.Source.Config) == 0 {
		return json.RawMessage("{}"), nil
	}
	raw, err := json.Marshal(c.Source.Config)
	if err != nil {
		return nil, fmt.Errorf("unable to encode source config: %w", err)
	}
	return raw, nil
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("feedview")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FEEDVIEW")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Default()
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Readiness.QuietWindow <= 0 {
		cfg.Readiness.QuietWindow = readiness.DefaultQuietWindow
	}

	return cfg, nil
}
