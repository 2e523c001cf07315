// Package config loads navd settings from a YAML file, a .env file and
// NAVD_ prefixed environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. NAVD_SERVER_PORT.
	EnvPrefix = "NAVD"

	// EnvConfigFile names the config file when --config is not given.
	EnvConfigFile = "NAVD_CONFIG_FILE"

	// DefaultConfigName is the config file searched in the working directory.
	DefaultConfigName = "navd"
)

// Config is the complete navd configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Console  ConsoleConfig  `mapstructure:"console"`
	Database DatabaseConfig `mapstructure:"database"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLSCert         string        `mapstructure:"tls_cert"`
	TLSKey          string        `mapstructure:"tls_key"`
}

type ConsoleConfig struct {
	BackendURL     string        `mapstructure:"backend_url"`
	HomePath       string        `mapstructure:"home_path"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PruneSchedule  string        `mapstructure:"prune_schedule"`
}

type DatabaseConfig struct {
	// Path of the SQLite file holding remembered sessions; ":memory:" keeps
	// them for the life of the process only.
	Path string `mapstructure:"path"`
}

type BackendConfig struct {
	Port      int           `mapstructure:"port"`
	Fixture   string        `mapstructure:"fixture"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")

	v.SetDefault("console.backend_url", "http://localhost:8081")
	v.SetDefault("console.home_path", "/dashboard")
	v.SetDefault("console.cookie_secure", false)
	v.SetDefault("console.session_ttl", 7*24*time.Hour)
	v.SetDefault("console.request_timeout", 15*time.Second)
	v.SetDefault("console.prune_schedule", "@every 10m")

	v.SetDefault("database.path", "navd.db")

	v.SetDefault("backend.port", 8081)
	v.SetDefault("backend.fixture", "fixtures/backend.yaml")
	v.SetDefault("backend.jwt_secret", "")
	v.SetDefault("backend.token_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// NewViper returns a viper instance with defaults and environment binding.
// file is read when set, otherwise NAVD_CONFIG_FILE, otherwise an optional
// navd.yaml in the working directory.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		file = os.Getenv(EnvConfigFile)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
		return v, nil
	}

	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName(DefaultConfigName)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Load reads and validates the configuration.
func Load(file string) (*Config, error) {
	v, err := NewViper(file)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads environment variables from the given .env files, or
// ".env" when none are given. Missing files are ignored; variables already
// set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the settings the console and backend cannot run without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("server.tls_cert and server.tls_key must be set together")
	}

	if c.Console.BackendURL == "" {
		return errors.New("console.backend_url is required")
	}
	u, err := url.Parse(c.Console.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("console.backend_url %q must be an http(s) URL", c.Console.BackendURL)
	}
	if !strings.HasPrefix(c.Console.HomePath, "/") {
		return fmt.Errorf("console.home_path %q must start with /", c.Console.HomePath)
	}
	if c.Console.HomePath == "/login" {
		return errors.New("console.home_path cannot be the login page")
	}
	if c.Console.SessionTTL <= 0 {
		return errors.New("console.session_ttl must be positive")
	}
	if c.Console.RequestTimeout <= 0 {
		return errors.New("console.request_timeout must be positive")
	}

	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}

	if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
		return fmt.Errorf("backend.port %d out of range", c.Backend.Port)
	}
	if c.Backend.TokenTTL <= 0 {
		return errors.New("backend.token_ttl must be positive")
	}

	return nil
}
