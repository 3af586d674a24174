package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Scope   ScopeConfig   `yaml:"scope" mapstructure:"scope"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DatasetConfig configures where the observation CSV comes from.
type DatasetConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	FallbackPath string `yaml:"fallback_path" mapstructure:"fallback_path"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Charset      string `yaml:"charset" mapstructure:"charset"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ScopeConfig lists the entities (countries) the pipeline is restricted to.
type ScopeConfig struct {
	Entities []string `yaml:"entities" mapstructure:"entities"`
}

// MetricsConfig configures metric derivation.
type MetricsConfig struct {
	RollingWindow      int      `yaml:"rolling_window" mapstructure:"rolling_window"`
	CaseColumns        []string `yaml:"case_columns" mapstructure:"case_columns"`
	VaccinationColumns []string `yaml:"vaccination_columns" mapstructure:"vaccination_columns"`
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
	v.SetEnvPrefix("EPITREND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset.url", "https://covid.ourworldindata.org/data/owid-covid-data.csv")
	v.SetDefault("dataset.fallback_path", "owid-covid-data.csv")
	v.SetDefault("dataset.timeout_secs", 60)
	v.SetDefault("dataset.charset", "utf-8")
	v.SetDefault("dataset.user_agent", "epitrend/1.0")
	v.SetDefault("scope.entities", []string{
		"United States", "India", "Brazil", "United Kingdom",
		"Germany", "France", "Russia",
	})
	v.SetDefault("metrics.rolling_window", 7)
	v.SetDefault("metrics.case_columns", []string{
		"total_cases", "new_cases", "total_deaths", "new_deaths",
	})
	v.SetDefault("metrics.vaccination_columns", []string{
		"total_vaccinations", "people_vaccinated", "people_fully_vaccinated",
	})
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

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Dataset.URL == "" && c.Dataset.FallbackPath == "" {
		problems = append(problems, "dataset.url or dataset.fallback_path is required")
	}
	if c.Dataset.TimeoutSecs <= 0 {
		problems = append(problems, "dataset.timeout_secs must be > 0")
	}
	if c.Metrics.RollingWindow < 1 || c.Metrics.RollingWindow > 90 {
		problems = append(problems, "metrics.rolling_window must be between 1 and 90")
	}
	if len(c.Metrics.CaseColumns) == 0 {
		problems = append(problems, "metrics.case_columns must not be empty")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
