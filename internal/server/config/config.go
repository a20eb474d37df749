// Package config loads settings of the development server from flags, the
// environment (CTS_ prefix) and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dmitrijs2005/containertracker/internal/logging"
	"github.com/dmitrijs2005/containertracker/internal/server/entries"
	"github.com/dmitrijs2005/containertracker/internal/server/users"
)

const EnvPrefix = "CTS"

type LogConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	// SecretKey signs session tokens. A random key is generated at startup
	// when empty, so sessions do not survive a restart.
	SecretKey   string        `mapstructure:"secret_key"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	LoginLimit  int           `mapstructure:"login_limit"`
	LoginWindow time.Duration `mapstructure:"login_window"`

	Users []users.Staff `mapstructure:"users"`

	Gemini GeminiConfig     `mapstructure:"gemini"`
	S3     entries.S3Config `mapstructure:"s3"`

	MetricsAddr string    `mapstructure:"metrics_addr"`
	Log         LogConfig `mapstructure:"log"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":50051")
	v.SetDefault("secret_key", "")
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("login_limit", users.DefaultLoginLimit)
	v.SetDefault("login_window", users.DefaultLoginWindow)
	v.SetDefault("users", []map[string]any{
		{"name": "Demo", "code": "DEMO01", "staff_id": "S-0001", "role": "operator"},
	})
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("config", "", "config file (JSON or YAML)")
	fs.StringP("address", "a", ":50051", "address:port to listen on")
	fs.String("secret-key", "", "key used to sign session tokens")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.String("log-level", "info", "debug, info, warn or error")

	for key, name := range map[string]string{
		"config":       "config",
		"listen_addr":  "address",
		"secret_key":   "secret-key",
		"metrics_addr": "metrics-addr",
		"log.level":    "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if c.ListenAddr == "" {
		return nil, fmt.Errorf("listen_addr must not be empty")
	}
	if c.SessionTTL <= 0 {
		return nil, fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if len(c.Users) == 0 {
		return nil, fmt.Errorf("at least one user must be configured")
	}
	return &c, nil
}

func (c *Config) LogOptions() logging.Options {
	return logging.Options{File: c.Log.File, Level: c.Log.Level, Format: c.Log.Format}
}
