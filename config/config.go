package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "TASKLINE"

type Config struct {
	HTTP          HTTPConfig          `mapstructure:"http"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Directory     DirectoryConfig     `mapstructure:"directory"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Dispatcher    DispatcherConfig    `mapstructure:"dispatcher"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Log           LogConfig           `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

type DirectoryConfig struct {
	BaseURL  string        `mapstructure:"baseUrl"`
	CacheTTL time.Duration `mapstructure:"cacheTtl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotificationConfig selects how task events reach the notification store:
// "local" ingests in-process, "remote" posts to BaseURL.
type NotificationConfig struct {
	Mode    string        `mapstructure:"mode"`
	BaseURL string        `mapstructure:"baseUrl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DispatcherConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batchSize"`
	SendRate  float64       `mapstructure:"sendRate"`
}

type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	BotUsername string        `mapstructure:"botUsername"`
	LinkTTL     time.Duration `mapstructure:"linkTtl"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "root:root@(127.0.0.1:3306)/taskline?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("directory.baseUrl", "http://user")
	v.SetDefault("directory.cacheTtl", time.Minute)
	v.SetDefault("directory.timeout", 5*time.Second)
	v.SetDefault("notification.mode", "local")
	v.SetDefault("notification.baseUrl", "http://notification")
	v.SetDefault("notification.timeout", 5*time.Second)
	v.SetDefault("dispatcher.enabled", true)
	v.SetDefault("dispatcher.interval", time.Second)
	v.SetDefault("dispatcher.batchSize", 30)
	v.SetDefault("dispatcher.sendRate", 25.0)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.botUsername", "")
	v.SetDefault("telegram.linkTtl", 15*time.Minute)
	v.SetDefault("elasticsearch.addresses", []string{})
	v.SetDefault("elasticsearch.index", "tasks")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")
}

// Load reads defaults, then the optional file, then TASKLINE_* environment variables.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be mysql or sqlite3, got %q", c.Database.Driver)
	}
	switch c.Notification.Mode {
	case "local", "remote":
	default:
		return fmt.Errorf("notification.mode must be local or remote, got %q", c.Notification.Mode)
	}
	if c.Dispatcher.BatchSize <= 0 || c.Dispatcher.BatchSize > 30 {
		return fmt.Errorf("dispatcher.batchSize must be within 1..30, got %d", c.Dispatcher.BatchSize)
	}
	if c.Dispatcher.Interval <= 0 {
		return fmt.Errorf("dispatcher.interval must be positive")
	}
	return nil
}
