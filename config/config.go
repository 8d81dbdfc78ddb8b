package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment  string             `mapstructure:"environment" json:"environment"`
	Server       ServerConfig       `mapstructure:"server" json:"server"`
	Database     DatabaseConfig     `mapstructure:"database" json:"database"`
	Redis        RedisConfig        `mapstructure:"redis" json:"redis"`
	Notification NotificationConfig `mapstructure:"notification" json:"notification"`
	View         ViewConfig         `mapstructure:"view" json:"view"`
	Logging      LoggingConfig      `mapstructure:"logging" json:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" json:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" json:"writeTimeout"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path" json:"path"`
	SeedDir string `mapstructure:"seed_dir" json:"seedDir"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled"`
	Addr     string        `mapstructure:"addr" json:"addr"`
	Password string        `mapstructure:"password" json:"-"`
	DB       int           `mapstructure:"db" json:"db"`
	AckTTL   time.Duration `mapstructure:"ack_ttl" json:"ackTTL"`
}

type NotificationConfig struct {
	ProgressInterval time.Duration `mapstructure:"progress_interval" json:"progressInterval"`
	TrackingInterval time.Duration `mapstructure:"tracking_interval" json:"trackingInterval"`
	WrapUpInterval   time.Duration `mapstructure:"wrapup_interval" json:"wrapUpInterval"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" json:"idleTimeout"`
}

type ViewConfig struct {
	Locale   string `mapstructure:"locale" json:"locale"`
	TimeZone string `mapstructure:"time_zone" json:"timeZone"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

var (
	cfg Config
	mu  sync.RWMutex
)

const envPrefix = "CSRDESK"

// LoadConfig reads the optional YAML file at path, applies CSRDESK_* environment
// overrides and defaults, and stores the result for GetConfig.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return Config{}, err
	}

	mu.Lock()
	cfg = loaded
	mu.Unlock()
	return loaded, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("database.path", "./csrdesk.db")
	v.SetDefault("database.seed_dir", "SEED")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ack_ttl", 30*24*time.Hour)
	v.SetDefault("notification.progress_interval", 10*time.Second)
	v.SetDefault("notification.tracking_interval", 30*time.Second)
	v.SetDefault("notification.wrapup_interval", 30*time.Second)
	v.SetDefault("notification.idle_timeout", 5*time.Minute)
	v.SetDefault("view.locale", "en")
	v.SetDefault("view.time_zone", "Local")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path not configured")
	}
	if _, err := time.LoadLocation(c.View.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.View.TimeZone, err)
	}
	return nil
}

// Location resolves View.TimeZone; it falls back to time.Local.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.View.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
