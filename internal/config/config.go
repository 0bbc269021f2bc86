// Package config loads the server configuration from an optional YAML
// file overlaid with environment variables. Environment variables always
// win, so deployments can override a checked-in file without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Cache  CacheConfig  `yaml:"cache"`
	WS     WSConfig     `yaml:"ws"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  Duration      `yaml:"requestTimeout"`
	ShutdownTimeout Duration      `yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// DBConfig configures the SQLite store.
type DBConfig struct {
	// DSN is the SQLite data source, e.g. "webchat.db" or ":memory:".
	DSN string `yaml:"dsn"`
}

// CacheConfig holds the TTLs of the cached views.
type CacheConfig struct {
	UserTTL      Duration `yaml:"userTTL"`
	ChatTTL      Duration `yaml:"chatTTL"`
	UserChatsTTL Duration `yaml:"userChatsTTL"`
}

// WSConfig configures the WebSocket endpoint.
type WSConfig struct {
	MaxConnections int `yaml:"maxConnections"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  Duration(30 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
		},
		DB: DBConfig{DSN: "webchat.db"},
		Cache: CacheConfig{
			UserTTL:      Duration(30 * time.Minute),
			ChatTTL:      Duration(15 * time.Minute),
			UserChatsTTL: Duration(5 * time.Minute),
		},
		WS: WSConfig{MaxConnections: 10000},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (when set), then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// LoadFile builds the configuration from defaults plus the given YAML
// file, without consulting the environment. The watcher uses it for
// reloads.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.DB.DSN = getEnv("DB_DSN", cfg.DB.DSN)
	cfg.Cache.UserTTL = getEnvDuration("CACHE_USER_TTL", cfg.Cache.UserTTL)
	cfg.Cache.ChatTTL = getEnvDuration("CACHE_CHAT_TTL", cfg.Cache.ChatTTL)
	cfg.Cache.UserChatsTTL = getEnvDuration("CACHE_USER_CHATS_TTL", cfg.Cache.UserChatsTTL)
	cfg.WS.MaxConnections = getEnvInt("WS_MAX_CONNECTIONS", cfg.WS.MaxConnections)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def Duration) Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return Duration(d)
}
