package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Session SessionConfig `mapstructure:"session"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Forum   ForumConfig   `mapstructure:"forum"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
type DBConfig struct {
	DSN            string `mapstructure:"dsn"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// OIDCConfig holds OIDC client configuration.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// SessionConfig holds session cookie configuration.
type SessionConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Lifetime  int    `mapstructure:"lifetime"` // hours
}

// CacheConfig holds the SQLite cache configuration.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// QueueConfig selects and configures the background task broker.
type QueueConfig struct {
	Driver        string `mapstructure:"driver"` // "memory" or "redis"
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Key           string `mapstructure:"key"`
	Workers       int    `mapstructure:"workers"`
	Buffer        int    `mapstructure:"buffer"`
}

// ForumConfig holds forum presentation settings.
type ForumConfig struct {
	SiteName        string   `mapstructure:"site_name"`
	PageSize        int      `mapstructure:"page_size"`
	DefaultOrdering string   `mapstructure:"default_ordering"`
	Admins          []string `mapstructure:"admins"` // granted the admin role at startup
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-forum-app/")
	v.AddConfigPath("$HOME/.go-forum-app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	v.SetEnvPrefix("FORUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("db.dsn", "forum:forum@tcp(127.0.0.1:3306)/forum?parseTime=true")
	v.SetDefault("db.migrations_path", "migrations")
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("session.secret_key", "")
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("cache.file_path", "forum_cache.db")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.redis_addr", "127.0.0.1:6379")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.key", "forum:tasks")
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.buffer", 256)
	v.SetDefault("forum.site_name", "Forum")
	v.SetDefault("forum.page_size", 30)
	v.SetDefault("forum.default_ordering", "-last_replied")
	v.SetDefault("forum.admins", []string{})
}
