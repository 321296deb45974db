package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Wayfarer backend.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Planner       PlannerConfig       `mapstructure:"planner"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ProvidersConfig holds settings for the upstream attraction and weather APIs.
type ProvidersConfig struct {
	Geoapify  GeoapifyConfig  `mapstructure:"geoapify"`
	OpenMeteo OpenMeteoConfig `mapstructure:"open_meteo"`
	Retry     RetryConfig     `mapstructure:"retry"`
}

// GeoapifyConfig configures the attraction candidate source.
type GeoapifyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Limit   int    `mapstructure:"limit"`
}

// OpenMeteoConfig configures the daily forecast source.
type OpenMeteoConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// RetryConfig shapes the retry policy applied to provider calls.
type RetryConfig struct {
	Attempts       int           `mapstructure:"attempts"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// PlannerConfig tunes itinerary generation.
type PlannerConfig struct {
	SearchRadiusMeters int   `mapstructure:"search_radius_meters"`
	RandomSeed         int64 `mapstructure:"random_seed"`
}

// NotificationsConfig configures reminder dispatch and the SMS gateway.
type NotificationsConfig struct {
	DispatchSchedule string    `mapstructure:"dispatch_schedule"`
	BatchSize        int       `mapstructure:"batch_size"`
	SMS              SMSConfig `mapstructure:"sms"`
}

// SMSConfig defines the outbound SMS gateway settings.
type SMSConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	AccountID string        `mapstructure:"account_id"`
	AuthToken string        `mapstructure:"auth_token"`
	From      string        `mapstructure:"from"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("WAYFARER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/wayfarer.sqlite")

	v.SetDefault("providers.geoapify.base_url", "")
	v.SetDefault("providers.geoapify.api_key", "")
	v.SetDefault("providers.geoapify.limit", 50)
	v.SetDefault("providers.open_meteo.base_url", "")
	v.SetDefault("providers.retry.attempts", 3)
	v.SetDefault("providers.retry.attempt_timeout", "5s")
	v.SetDefault("providers.retry.initial_backoff", "250ms")
	v.SetDefault("providers.retry.max_backoff", "2s")

	v.SetDefault("planner.search_radius_meters", 10000)
	v.SetDefault("planner.random_seed", 0)

	v.SetDefault("notifications.dispatch_schedule", "@every 1m")
	v.SetDefault("notifications.batch_size", 100)
	v.SetDefault("notifications.sms.enabled", false)
	v.SetDefault("notifications.sms.timeout", "10s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
