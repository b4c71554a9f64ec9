package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppConfig holds the full application configuration.
type AppConfig struct {
	Feed      FeedConfig      `mapstructure:"feed"`
	Geocode   GeocodeConfig   `mapstructure:"geocode"`
	Server    ServerConfig    `mapstructure:"server"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Log       LogConfig       `mapstructure:"log"`
}

// FeedConfig configures the upstream air quality feed.
type FeedConfig struct {
	Token   string `mapstructure:"token" validate:"required"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Location is a feed path segment: "here", "geo:lat;lng", or a city slug.
	Location      string        `mapstructure:"location" validate:"required,excludesall=/?#"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RatePerSecond float64       `mapstructure:"rate_per_second" validate:"gte=0"`
	Burst         int           `mapstructure:"burst" validate:"gte=0"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// GeocodeConfig optionally resolves a city to coordinates instead of using
// FeedConfig.Location.
type GeocodeConfig struct {
	City    string `mapstructure:"city"`
	Country string `mapstructure:"country"`
	APIKey  string `mapstructure:"api_key" validate:"required_with=City"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gt=0,lte=65535"`
	// BasePath is the sub-path prefix the dashboard is served under.
	BasePath string `mapstructure:"base_path" validate:"omitempty,startswith=/"`
}

// DashboardConfig holds presentation defaults.
type DashboardConfig struct {
	PrimarySeries   string `mapstructure:"primary_series" validate:"required,alphanum"`
	SecondarySeries string `mapstructure:"secondary_series" validate:"required,alphanum"`
}

// RefreshConfig controls periodic reloads; a zero interval disables them.
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
	// LoadTimeout bounds one load sequence. It must exceed Feed.Timeout: a
	// sequence cut off by it is discarded and leaves the dashboard Loading.
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateLoadTimeout, AppConfig{})
	return v
}

func validateLoadTimeout(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(AppConfig)
	if cfg.Refresh.LoadTimeout <= cfg.Feed.Timeout {
		sl.ReportError(cfg.Refresh.LoadTimeout, "Refresh.LoadTimeout", "LoadTimeout", "gt_feed_timeout", cfg.Feed.Timeout.String())
	}
}

// Load reads configuration from an optional .env file, an optional
// config.yaml, and AQDASH_* environment variables, in increasing precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("no .env file loaded", zap.Error(err))
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AQDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults double as the key registry for AutomaticEnv during Unmarshal.
	v.SetDefault("feed.token", "")
	v.SetDefault("feed.base_url", "https://api.waqi.info")
	v.SetDefault("feed.location", "here")
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("feed.rate_per_second", 1.0)
	v.SetDefault("feed.burst", 1)
	v.SetDefault("feed.user_agent", "air-quality-dashboard/1.0")
	v.SetDefault("geocode.city", "")
	v.SetDefault("geocode.country", "")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_path", "")
	v.SetDefault("dashboard.primary_series", "pm25")
	v.SetDefault("dashboard.secondary_series", "pm10")
	v.SetDefault("refresh.interval", 30*time.Minute)
	v.SetDefault("refresh.load_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Server.BasePath = strings.TrimRight(cfg.Server.BasePath, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return eris.Wrap(err, "config: invalid")
	}
	return nil
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
