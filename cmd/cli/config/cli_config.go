package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/inferloop/tsforecast/internal/forecast"
	"github.com/inferloop/tsforecast/internal/storage"
	"github.com/inferloop/tsforecast/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. TSFORECAST_DEFAULT_DAYS
const EnvPrefix = "TSFORECAST"

type CLIConfig struct {
	DefaultFormat string             `mapstructure:"default_format"`
	DefaultDays   int                `mapstructure:"default_days"`
	DefaultEngine string             `mapstructure:"default_engine"`
	LogLevel      string             `mapstructure:"log_level"`
	Model         models.ModelConfig `mapstructure:"model"`
	Storage       storage.Config     `mapstructure:"storage"`
	Preferences   Preferences        `mapstructure:"preferences"`
}

type Preferences struct {
	Precision int  `mapstructure:"precision"`
	Pretty    bool `mapstructure:"pretty"`
}

// DefaultConfig returns the settings used without a config file
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		DefaultFormat: "json",
		DefaultDays:   models.DefaultHorizonDays,
		DefaultEngine: forecast.DefaultEngine,
		LogLevel:      "warn",
		Model:         models.DefaultModelConfig(),
		Storage:       storage.DefaultConfig(),
		Preferences: Preferences{
			Precision: 4,
			Pretty:    true,
		},
	}
}

// LoadConfig reads cfgFile, or $HOME/.tsforecast.yaml when cfgFile is empty.
// A missing default file is not an error.
func LoadConfig(cfgFile string) (*CLIConfig, error) {
	config := DefaultConfig()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(home)
		v.SetConfigName(".tsforecast")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("default_format", config.DefaultFormat)
	v.SetDefault("default_days", config.DefaultDays)
	v.SetDefault("default_engine", config.DefaultEngine)
	v.SetDefault("log_level", config.LogLevel)
	v.SetDefault("model.seasonality_mode", string(config.Model.SeasonalityMode))
	v.SetDefault("model.growth", string(config.Model.Growth))
	v.SetDefault("model.interval_width", config.Model.IntervalWidth)
	v.SetDefault("preferences.precision", config.Preferences.Precision)
	v.SetDefault("preferences.pretty", config.Preferences.Pretty)
	v.SetDefault("storage.backend", config.Storage.Backend)
	v.SetDefault("storage.source", "")
	v.SetDefault("storage.influxdb.url", "")
	v.SetDefault("storage.influxdb.token", "")
	v.SetDefault("storage.timescaledb.host", "")
	v.SetDefault("storage.timescaledb.password", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeHookFunc("2006-01-02"),
	))
	if err := v.Unmarshal(config, hook); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.Model = config.Model.WithDefaults()
	if err := config.Model.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ConfigPath returns the default config file location
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tsforecast.yaml"
	}
	return filepath.Join(home, ".tsforecast.yaml")
}
