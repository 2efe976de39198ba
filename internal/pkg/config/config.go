package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Location  LocationConfig  `mapstructure:"location"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	OpenAPIPath  string `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxConns        int32  `mapstructure:"max_conns"`
	MinConns        int32  `mapstructure:"min_conns"`
	ConnLifetimeSec int    `mapstructure:"conn_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ConnLifetime returns how long a pooled connection may live.
func (d DatabaseConfig) ConnLifetime() time.Duration {
	return time.Duration(d.ConnLifetimeSec) * time.Second
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// LocationConfig controls location streams opened by the API.
type LocationConfig struct {
	MinIntervalMS int  `mapstructure:"min_interval_ms"`
	Buffer        int  `mapstructure:"buffer"`
	HighAccuracy  bool `mapstructure:"high_accuracy"`
	RetryDelayMS  int  `mapstructure:"retry_delay_ms"`
	MaxRetries    int  `mapstructure:"max_retries"`
	LastKnownTTL  int  `mapstructure:"last_known_ttl"`
	// FollowSources are followed for the lifetime of the API process so
	// their last known location is always cached.
	FollowSources []string `mapstructure:"follow_sources"`
}

// MinInterval returns the configured default sampling interval.
func (l LocationConfig) MinInterval() time.Duration {
	return time.Duration(l.MinIntervalMS) * time.Millisecond
}

// RetryDelay returns the pause before a follower reopens a dropped stream.
func (l LocationConfig) RetryDelay() time.Duration {
	return time.Duration(l.RetryDelayMS) * time.Millisecond
}

// RequestConfig is the default per-stream config built from these settings.
func (l LocationConfig) RequestConfig() domain.UpdateRequestConfig {
	return domain.UpdateRequestConfig{
		MinInterval:  l.MinInterval(),
		HighAccuracy: l.HighAccuracy,
	}
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.openapi_path", "api/openapi.yaml")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "plaza")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "plaza")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.conn_lifetime", 1800)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "plaza")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "plaza.location")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("location.min_interval_ms", int(domain.DefaultMinInterval/time.Millisecond))
	v.SetDefault("location.buffer", 1)
	v.SetDefault("location.high_accuracy", false)
	v.SetDefault("location.retry_delay_ms", 1000)
	v.SetDefault("location.max_retries", 3)
	v.SetDefault("location.last_known_ttl", 300)
	v.SetDefault("location.follow_sources", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PLAZA_DATABASE_HOST → database.host
	v.SetEnvPrefix("PLAZA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, fmt.Sprintf("database.min_conns must be 0-%d, got %d", c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Mongo.URI == "" {
		errs = append(errs, "mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		errs = append(errs, "mongo.database is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, "*> ") {
		errs = append(errs, fmt.Sprintf("nats.subject_prefix must be a literal subject, got %q", c.NATS.SubjectPrefix))
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Location.MinIntervalMS < 0 {
		errs = append(errs, "location.min_interval_ms must not be negative")
	}
	if c.Location.Buffer < 1 {
		errs = append(errs, fmt.Sprintf("location.buffer must be at least 1, got %d", c.Location.Buffer))
	}
	if c.Location.RetryDelayMS < 0 {
		errs = append(errs, "location.retry_delay_ms must not be negative")
	}
	if c.Location.MaxRetries < 0 {
		errs = append(errs, "location.max_retries must not be negative")
	}
	if c.Location.LastKnownTTL <= 0 {
		errs = append(errs, "location.last_known_ttl must be positive")
	}
	for _, src := range c.Location.FollowSources {
		if src == "" || strings.ContainsAny(src, ".*> ") {
			errs = append(errs, fmt.Sprintf("location.follow_sources contains invalid source %q", src))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
