package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dmitrijs2005/containertracker/internal/logging"
)

const (
	EnvPrefix = "CT"
	dbFile    = "containertracker.db"
)

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Config holds runtime settings of the client.
type Config struct {
	ServerAddr string    `mapstructure:"server_addr"`
	DataDir    string    `mapstructure:"data_dir"`
	DBPath     string    `mapstructure:"db_path"`
	Log        LogConfig `mapstructure:"log"`

	OnlineCheckInterval time.Duration `mapstructure:"online_check_interval"`
	ReconnectWindow     time.Duration `mapstructure:"reconnect_window"`
	StatusPollInterval  time.Duration `mapstructure:"status_poll_interval"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`

	// MetricsAddr enables the /metrics endpoint when set.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "containertracker")
	}
	return "."
}

// SetDefaults registers the built-in values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "127.0.0.1:50051")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("db_path", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("online_check_interval", 3*time.Second)
	v.SetDefault("reconnect_window", 5*time.Second)
	v.SetDefault("status_poll_interval", 5*time.Second)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("metrics_addr", "")
}

// BindFlags registers the client flags on fs and binds them to v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("config", "", "config file (JSON or YAML)")
	fs.StringP("server", "a", "127.0.0.1:50051", "address:port of the server")
	fs.String("db", "", "path of the local database file")
	fs.String("log-file", "", "log file, stderr when empty")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.DurationP("check-interval", "i", 3*time.Second, "online status check interval")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")

	for key, name := range map[string]string{
		"config":                "config",
		"server_addr":           "server",
		"db_path":               "db",
		"log.file":              "log-file",
		"log.level":             "log-level",
		"online_check_interval": "check-interval",
		"metrics_addr":          "metrics-addr",
	} {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the file named by the "config" key (if any) and the
// environment, then decodes everything into a Config.
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
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDefault is Load on a fresh viper instance with defaults only, plus
// whatever the environment sets.
func LoadDefault() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	return Load(v)
}

func (c *Config) validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server_addr must not be empty")
	}
	for name, d := range map[string]time.Duration{
		"online_check_interval": c.OnlineCheckInterval,
		"reconnect_window":      c.ReconnectWindow,
		"status_poll_interval":  c.StatusPollInterval,
		"request_timeout":       c.RequestTimeout,
		"session_ttl":           c.SessionTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// DatabasePath is DBPath, or the default file inside DataDir.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, dbFile)
}

func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		File:       c.Log.File,
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
