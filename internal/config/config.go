// Package config loads the agent's static configuration from defaults, a
// YAML file, and environment variables, in that order of increasing
// precedence, the way the teacher's own config loader layers viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the agent's static configuration.
type Config struct {
	Listen ListenConfig `mapstructure:"listen" yaml:"listen"`

	MaxFrameSize    uint32        `mapstructure:"max_frame_size" validate:"required,gt=0" yaml:"max_frame_size"`
	MaxProcessTime  time.Duration `mapstructure:"max_process_time" validate:"required,gt=0" yaml:"max_process_time"`
	Capabilities    []string      `mapstructure:"capabilities" yaml:"capabilities"`
	MaxConnections  int64         `mapstructure:"max_connections" validate:"gte=0" yaml:"max_connections"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Admin     AdminConfig     `mapstructure:"admin" yaml:"admin"`
	Mirror    MirrorConfig    `mapstructure:"mirror" yaml:"mirror"`
}

// ListenConfig configures the SPOP listener.
type ListenConfig struct {
	Address string `mapstructure:"address" validate:"required" yaml:"address"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	Enabled    bool             `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string           `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool             `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64          `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig  `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls the optional Pyroscope continuous profiler.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics endpoint exposed over the
// admin HTTP surface.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AdminConfig configures the admin HTTP surface (health, metrics, stats,
// pprof).
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// MirrorConfig configures the bundled example mirror service.
type MirrorConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Load starts from the defaults, applies the config file's values, and lets
// environment variables prefixed SPOAGENT_ override keys the file sets.
// When no config file is found, the defaults are returned as they are and
// environment variables are not consulted.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if !found {
		return cfg, validate(cfg)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration, returning an actionable error if no config
// file exists at the default location and none was given explicitly.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" && !DefaultConfigExists() {
		return nil, fmt.Errorf("no configuration file found at %s\n\nrun:\n  spoagent init", GetDefaultConfigPath())
	}
	return Load(configPath)
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Listen:          ListenConfig{Address: "0.0.0.0", Port: 12345},
		MaxFrameSize:    16384,
		MaxProcessTime:  time.Second,
		Capabilities:    []string{"pipelining", "fragmentation"},
		MaxConnections:  0,
		ShutdownTimeout: 10 * time.Second,
		Logging:         LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Telemetry:       TelemetryConfig{Enabled: false, Endpoint: "localhost:4317", Insecure: true, SampleRate: 1.0},
		Metrics:         MetricsConfig{Enabled: true},
		Admin:           AdminConfig{Enabled: true, Address: "127.0.0.1:9091"},
		Mirror:          MirrorConfig{Timeout: 2 * time.Second},
	}
}

func validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SPOAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(configDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spoagent")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "spoagent")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
