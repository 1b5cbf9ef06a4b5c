// Package config provides configuration management for hermes using Viper.
// It supports configuration from files, environment variables, and defaults.
//
// Only deployment-level settings live here. Runtime-tunable knobs (break
// interval, quiet hours, word budgets, provider selection) live in the
// settings table so operators can change them without a restart.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8100
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultAPIKey          = "changeme"

	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute

	defaultPlayoutPort           = 1234
	defaultPlayoutConnectTimeout = 5 * time.Second
	defaultPlayoutCommandTimeout = 5 * time.Second
	defaultPlayoutPollInterval   = 5 * time.Second

	defaultProviderTimeout = 10 * time.Second
	defaultLLMTimeout      = 30 * time.Second
	defaultSpeechTimeout   = 30 * time.Second

	defaultVideoWidth  = 1920
	defaultVideoHeight = 1080
	defaultVideoFPS    = 24
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Playout   PlayoutConfig   `mapstructure:"playout"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Video     VideoConfig     `mapstructure:"video"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APIKey guards the admin surface. The playout webhook is exempt
	// (localhost-only check instead) so the playout box needs no secret.
	APIKey string `mapstructure:"api_key" masq:"secret"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	MediaDir  string `mapstructure:"media_dir"`  // finished break audio/video
	TempDir   string `mapstructure:"temp_dir"`   // pipeline scratch space
	AssetsDir string `mapstructure:"assets_dir"` // host art, stings, fonts, backgrounds
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// PlayoutConfig holds the playout automation connection configuration.
type PlayoutConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// ProvidersConfig groups external content provider configuration.
type ProvidersConfig struct {
	Weather WeatherConfig `mapstructure:"weather"`
	Market  MarketConfig  `mapstructure:"market"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Speech  SpeechConfig  `mapstructure:"speech"`
}

// WeatherConfig holds the weather API configuration.
type WeatherConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MarketConfig holds the market quote API configuration.
// The API key and enable flag are runtime settings, not deployment config.
type MarketConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds the language model API configuration.
// BaseURL empty means the OpenAI platform default; point it at any
// OpenAI-compatible endpoint for local models.
type LLMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key" masq:"secret"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SpeechConfig holds speech synthesis configuration.
// The ElevenLabs API key and the default provider selection are runtime
// settings; this covers process-level concerns only.
type SpeechConfig struct {
	PiperBinary       string        `mapstructure:"piper_binary"`
	PiperModelsDir    string        `mapstructure:"piper_models_dir"`
	PiperModel        string        `mapstructure:"piper_model"`
	ElevenLabsBaseURL string        `mapstructure:"elevenlabs_base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// VideoConfig holds visual pipeline configuration.
type VideoConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Width   int  `mapstructure:"width"`
	Height  int  `mapstructure:"height"`
	FPS     int  `mapstructure:"fps"`
}

// SchedulerConfig holds background job scheduling configuration.
// The break cadence itself is a runtime setting; this is only the
// maintenance schedule (pruning, stats rollup).
type SchedulerConfig struct {
	MaintenanceCron string `mapstructure:"maintenance_cron"` // 6-field cron expression
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with HERMES_ and use underscores for nesting.
// Example: HERMES_SERVER_PORT=8100.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hermes")
		v.AddConfigPath("$HOME/.hermes")
	}

	// Environment variable settings
	v.SetEnvPrefix("HERMES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.api_key", defaultAPIKey)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "hermes.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.base_dir", "/opt/hermes")
	v.SetDefault("storage.media_dir", "media")
	v.SetDefault("storage.temp_dir", "tmp")
	v.SetDefault("storage.assets_dir", "assets")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Playout defaults (liquidsoap-style telnet on the same box)
	v.SetDefault("playout.host", "127.0.0.1")
	v.SetDefault("playout.port", defaultPlayoutPort)
	v.SetDefault("playout.connect_timeout", defaultPlayoutConnectTimeout)
	v.SetDefault("playout.command_timeout", defaultPlayoutCommandTimeout)
	v.SetDefault("playout.poll_interval", defaultPlayoutPollInterval)

	// Provider defaults
	v.SetDefault("providers.weather.base_url", "https://api.open-meteo.com")
	v.SetDefault("providers.weather.timeout", defaultProviderTimeout)
	v.SetDefault("providers.market.base_url", "https://api.coingecko.com")
	v.SetDefault("providers.market.timeout", defaultProviderTimeout)
	v.SetDefault("providers.llm.base_url", "")
	v.SetDefault("providers.llm.api_key", "")
	v.SetDefault("providers.llm.model", "gpt-4o-mini")
	v.SetDefault("providers.llm.timeout", defaultLLMTimeout)
	v.SetDefault("providers.speech.piper_binary", "piper")
	v.SetDefault("providers.speech.piper_models_dir", "/opt/hermes/models")
	v.SetDefault("providers.speech.piper_model", "")
	v.SetDefault("providers.speech.elevenlabs_base_url", "https://api.elevenlabs.io")
	v.SetDefault("providers.speech.timeout", defaultSpeechTimeout)

	// Video defaults
	v.SetDefault("video.enabled", false)
	v.SetDefault("video.width", defaultVideoWidth)
	v.SetDefault("video.height", defaultVideoHeight)
	v.SetDefault("video.fps", defaultVideoFPS)

	// Scheduler defaults
	v.SetDefault("scheduler.maintenance_cron", "0 0 3 * * *") // Daily at 3 AM (6-field cron)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	// Database validation
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	// Storage validation
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Playout validation
	if c.Playout.Port < 1 || c.Playout.Port > maxPort {
		return fmt.Errorf("playout.port must be between 1 and %d", maxPort)
	}

	// Video validation
	if c.Video.Width < 2 || c.Video.Height < 2 {
		return fmt.Errorf("video dimensions must be at least 2x2")
	}
	if c.Video.FPS < 1 || c.Video.FPS > 120 {
		return fmt.Errorf("video.fps must be between 1 and 120")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns the playout address in host:port format.
func (c *PlayoutConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MediaPath returns the full path to the finished media directory.
func (c *StorageConfig) MediaPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.MediaDir)
}

// TempPath returns the full path to the temp directory.
func (c *StorageConfig) TempPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.TempDir)
}

// AssetsPath returns the full path to the assets directory.
func (c *StorageConfig) AssetsPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.AssetsDir)
}

// Redacted returns a copy of the configuration with secret values masked,
// suitable for printing. The log stream gets the same treatment from masq.
func (c *Config) Redacted() Config {
	out := *c
	if out.Server.APIKey != "" {
		out.Server.APIKey = "[REDACTED]"
	}
	if out.Providers.LLM.APIKey != "" {
		out.Providers.LLM.APIKey = "[REDACTED]"
	}
	return out
}
