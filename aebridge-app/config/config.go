package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/compose-network/aebridge/x/dispatch"
)

// Config holds the complete application configuration
type Config struct {
	Transport   TransportConfig   `mapstructure:"transport"   yaml:"transport"`
	API         APIServerConfig   `mapstructure:"api"         yaml:"api"`
	Dispatch    DispatchConfig    `mapstructure:"dispatch"    yaml:"dispatch"`
	Terminology TerminologyConfig `mapstructure:"terminology" yaml:"terminology"`
	Metrics     MetricsConfig     `mapstructure:"metrics"     yaml:"metrics"`
	Log         LogConfig         `mapstructure:"log"         yaml:"log"`
}

// TransportConfig holds the TCP event responder configuration. An empty
// listen address keeps the responder in-process only.
type TransportConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"      yaml:"listen_addr"      env:"TRANSPORT_LISTEN_ADDR"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"     yaml:"read_timeout"     env:"TRANSPORT_READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"    yaml:"write_timeout"    env:"TRANSPORT_WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"     yaml:"idle_timeout"     env:"TRANSPORT_IDLE_TIMEOUT"`
	MaxMessageSize int           `mapstructure:"max_message_size" yaml:"max_message_size" env:"TRANSPORT_MAX_MESSAGE_SIZE"`
}

// APIServerConfig holds HTTP API server configuration
type APIServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"         yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"        yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        yaml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    yaml:"max_header_bytes"`
	EnableCORS        bool          `mapstructure:"enable_cors"         yaml:"enable_cors"`
}

// DispatchConfig selects the target application and how commands reach it.
type DispatchConfig struct {
	// Target is "name:<app>", "bundle:<id>", "path:<path>", "pid:<n>",
	// "url:<url>" or "current".
	Target string `mapstructure:"target" yaml:"target" env:"DISPATCH_TARGET"`
	// Remote, when set, sends events to a responder over TCP instead of the
	// in-process one.
	Remote          string        `mapstructure:"remote"           yaml:"remote"           env:"DISPATCH_REMOTE"`
	Relaunch        string        `mapstructure:"relaunch"         yaml:"relaunch"         env:"DISPATCH_RELAUNCH"`
	Timeout         time.Duration `mapstructure:"timeout"          yaml:"timeout"          env:"DISPATCH_TIMEOUT"`
	Ignoring        []string      `mapstructure:"ignoring"         yaml:"ignoring"`
	DeferReferences bool          `mapstructure:"defer_references" yaml:"defer_references" env:"DISPATCH_DEFER_REFERENCES"`
}

// TerminologyConfig points at an optional application dictionary.
type TerminologyConfig struct {
	// Path is a YAML or TOML dictionary layered over the core vocabulary.
	Path string `mapstructure:"path" yaml:"path" env:"TERMINOLOGY_PATH"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `mapstructure:"path"    yaml:"path"    env:"METRICS_PATH"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// Load loads configuration from file and environment. An empty path uses
// defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("transport.listen_addr", "")
	v.SetDefault("transport.read_timeout", "2m")
	v.SetDefault("transport.write_timeout", "20s")
	v.SetDefault("transport.idle_timeout", "30s")
	v.SetDefault("transport.max_message_size", 10*1024*1024) // 10MB

	v.SetDefault("api.listen_addr", ":8088")
	v.SetDefault("api.read_header_timeout", "5s")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "150s")
	v.SetDefault("api.idle_timeout", "120s")
	v.SetDefault("api.max_header_bytes", 1048576)
	v.SetDefault("api.enable_cors", false)

	v.SetDefault("dispatch.target", "name:Demo")
	v.SetDefault("dispatch.remote", "")
	v.SetDefault("dispatch.relaunch", dispatch.RelaunchLimited.String())
	v.SetDefault("dispatch.timeout", dispatch.DefaultTimeout.String())
	v.SetDefault("dispatch.ignoring", []string{"case"})
	v.SetDefault("dispatch.defer_references", false)

	v.SetDefault("terminology.path", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTransport() error {
	if c.Transport.MaxMessageSize <= 0 {
		return fmt.Errorf("transport.max_message_size must be positive, got %d", c.Transport.MaxMessageSize)
	}
	if c.Transport.ReadTimeout <= 0 {
		return fmt.Errorf("transport.read_timeout must be positive")
	}
	if c.Transport.WriteTimeout <= 0 {
		return fmt.Errorf("transport.write_timeout must be positive")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if _, err := ParseTarget(c.Dispatch.Target); err != nil {
		return fmt.Errorf("dispatch.target: %w", err)
	}
	if _, err := dispatch.ParseRelaunchMode(c.Dispatch.Relaunch); err != nil {
		return fmt.Errorf("dispatch.relaunch: %w", err)
	}
	if c.Dispatch.Timeout < 0 {
		return fmt.Errorf("dispatch.timeout must not be negative")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	return nil
}

// DispatchOptions translates the dispatch section into dispatcher options.
func (c *Config) DispatchOptions() ([]dispatch.Option, error) {
	mode, err := dispatch.ParseRelaunchMode(c.Dispatch.Relaunch)
	if err != nil {
		return nil, err
	}
	opts := []dispatch.Option{
		dispatch.WithRelaunchMode(mode),
		dispatch.WithDeferredReferences(c.Dispatch.DeferReferences),
	}
	if c.Dispatch.Timeout > 0 {
		opts = append(opts, dispatch.WithTimeout(c.Dispatch.Timeout))
	}
	if c.Dispatch.Ignoring != nil {
		opts = append(opts, dispatch.WithIgnoring(c.Dispatch.Ignoring...))
	}
	return opts, nil
}
