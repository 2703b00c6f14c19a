// Package config holds folio's runtime configuration. Values come from
// defaults, an optional folio.yaml file and FOLIO_* environment variables,
// merged by viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override, e.g.
// FOLIO_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "FOLIO"

// Config is the fully resolved configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Contact   ContactConfig   `mapstructure:"contact"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Content   ContentConfig   `mapstructure:"content"`
	Log       LogConfig       `mapstructure:"log"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	StaticDir       string        `mapstructure:"static_dir"`
	Metrics         bool          `mapstructure:"metrics"`

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// StoreConfig selects the database.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	DataDir         string        `mapstructure:"data_dir"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AuthConfig controls the admin credential and session tokens.
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	AdminUsername      string        `mapstructure:"admin_username"`
	AdminPassword      string        `mapstructure:"admin_password"`
	LoginRatePerMinute int           `mapstructure:"login_rate_per_minute"`
}

// ContactConfig controls the public contact form.
type ContactConfig struct {
	RequireCaptcha bool          `mapstructure:"require_captcha"`
	CaptchaTTL     time.Duration `mapstructure:"captcha_ttl"`
	RatePerMinute  int           `mapstructure:"rate_per_minute"`
}

// AnalyticsConfig tunes event ingestion and statistics.
type AnalyticsConfig struct {
	QueueSize      int           `mapstructure:"queue_size"`
	BatchSize      int           `mapstructure:"batch_size"`
	FlushInterval  time.Duration `mapstructure:"flush_interval"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	StatsCacheTTL  time.Duration `mapstructure:"stats_cache_ttl"`
	RecentVisitors int           `mapstructure:"recent_visitors"`
}

// ContentConfig controls initial content.
type ContentConfig struct {
	SeedOnEmpty bool `mapstructure:"seed_on_empty"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MCPConfig controls the MCP server started by "folio mcp".
type MCPConfig struct {
	Transport string `mapstructure:"transport"`
	Addr      string `mapstructure:"addr"`
}

// SetDefaults registers every default value on v. Registering a default
// also makes the key visible to environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_size", 1<<20)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.data_dir", "")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", "5m")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "password")
	v.SetDefault("auth.login_rate_per_minute", 10)

	v.SetDefault("contact.require_captcha", true)
	v.SetDefault("contact.captcha_ttl", "10m")
	v.SetDefault("contact.rate_per_minute", 5)

	v.SetDefault("analytics.queue_size", 1024)
	v.SetDefault("analytics.batch_size", 100)
	v.SetDefault("analytics.flush_interval", "2s")
	v.SetDefault("analytics.session_timeout", "30m")
	v.SetDefault("analytics.stats_cache_ttl", "30s")
	v.SetDefault("analytics.recent_visitors", 10)

	v.SetDefault("content.seed_on_empty", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("mcp.transport", "stdio")
	v.SetDefault("mcp.addr", ":8081")
}

// BindEnv wires FOLIO_* environment variables into v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	if c.Auth.AdminUsername == "" {
		problems = append(problems, "auth.admin_username must not be empty")
	}
	if c.Analytics.QueueSize <= 0 {
		problems = append(problems, "analytics.queue_size must be positive")
	}
	if c.Analytics.BatchSize <= 0 {
		problems = append(problems, "analytics.batch_size must be positive")
	}
	if c.Analytics.SessionTimeout <= 0 {
		problems = append(problems, "analytics.session_timeout must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	switch c.MCP.Transport {
	case "stdio", "http":
	default:
		problems = append(problems, fmt.Sprintf("mcp.transport %q must be stdio or http", c.MCP.Transport))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
