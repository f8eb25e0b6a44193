package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/terralytics/carbon-cli/internal/stock"
)

// Config holds the full application configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service" mapstructure:"service"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServiceConfig points at the upstream LULC classification service.
type ServiceConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnalysisConfig holds the run parameters of the emission pipeline.
type AnalysisConfig struct {
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`
	StockSource string  `yaml:"stock_source" mapstructure:"stock_source"`
	StockFile   string  `yaml:"stock_file" mapstructure:"stock_file"`
	ResolutionM float64 `yaml:"resolution_m" mapstructure:"resolution_m"`
	Workers     int     `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutputConfig configures where run artifacts land.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the analysis HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("CARBON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("service.base_url", "http://localhost:9000")
	v.SetDefault("service.timeout_secs", 120)
	v.SetDefault("service.rate_per_sec", 2.0)
	v.SetDefault("analysis.threshold", 0.75)
	v.SetDefault("analysis.stock_source", string(stock.DefaultSource))
	v.SetDefault("analysis.resolution_m", 10.0)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "carbon.db")
	v.SetDefault("output.dir", "out")
	v.SetDefault("server.port", 8080)
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects parameter combinations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Analysis.Threshold < 0 || c.Analysis.Threshold > 1 {
		return eris.Errorf("config: analysis.threshold %g outside [0,1]", c.Analysis.Threshold)
	}
	if c.Analysis.ResolutionM <= 0 {
		return eris.Errorf("config: analysis.resolution_m %g must be positive", c.Analysis.ResolutionM)
	}
	if c.Analysis.StockFile == "" {
		if _, err := stock.Lookup(stock.Source(c.Analysis.StockSource)); err != nil {
			return eris.Wrap(err, "config: analysis.stock_source")
		}
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "":
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// StockTable resolves the configured stock table, preferring a custom file.
func (c *Config) StockTable() (stock.Table, error) {
	if c.Analysis.StockFile != "" {
		return stock.LoadFile(c.Analysis.StockFile)
	}
	return stock.Lookup(stock.Source(c.Analysis.StockSource))
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
