package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ajuntament-olot/pla-usos/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Proximity ProximityConfig `yaml:"proximity" mapstructure:"proximity"`
	Map       MapConfig       `yaml:"map" mapstructure:"map"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// DatabaseConfig configures the PostgreSQL backend holding the reference
// catalog, the condition rule matrix and the geocoded activity registry.
type DatabaseConfig struct {
	URL  string        `yaml:"url" mapstructure:"url"`
	Pool db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// StoreConfig configures the consultation log backend. The log can live in
// the main PostgreSQL database or in a local SQLite file for small
// deployments.
type StoreConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"` // postgres | sqlite
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ProximityConfig configures the same-group distance and density checks.
// Enabled=false is the documented degraded mode for deployments without
// spatial search: every proximity probe reports zero matches.
type ProximityConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	ShortRadiusM float64 `yaml:"short_radius_m" mapstructure:"short_radius_m"`
	LongRadiusM  float64 `yaml:"long_radius_m" mapstructure:"long_radius_m"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// MapConfig configures the WMS endpoint used for the situation map embedded
// in consultation reports.
type MapConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Layers      string  `yaml:"layers" mapstructure:"layers"`
	Width       int     `yaml:"width" mapstructure:"width"`
	Height      int     `yaml:"height" mapstructure:"height"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLAUSOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "pla-usos.db")
	v.SetDefault("proximity.enabled", true)
	v.SetDefault("proximity.short_radius_m", 50)
	v.SetDefault("proximity.long_radius_m", 100)
	v.SetDefault("proximity.timeout_secs", 10)
	v.SetDefault("map.base_url", "https://geoserveis.icgc.cat/servei/catalunya/mapa-base/wms")
	v.SetDefault("map.layers", "topografic")
	v.SetDefault("map.width", 600)
	v.SetDefault("map.height", 400)
	v.SetDefault("map.timeout_secs", 20)
	v.SetDefault("map.rate_per_sec", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
