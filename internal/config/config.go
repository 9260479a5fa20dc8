package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Clean      CleanConfig      `yaml:"clean" mapstructure:"clean"`
	NER        NERConfig        `yaml:"ner" mapstructure:"ner"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Viz        VizConfig        `yaml:"viz" mapstructure:"viz"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CleanConfig maps the input CSV columns consumed by the cleaning stage.
type CleanConfig struct {
	IDColumn   string `yaml:"id_column" mapstructure:"id_column"`
	TimeColumn string `yaml:"time_column" mapstructure:"time_column"`
	TextColumn string `yaml:"text_column" mapstructure:"text_column"`
}

// NERConfig configures the NER stage: the model artifact directory, the
// inference server that has it loaded, and the confidence cutoff.
type NERConfig struct {
	ModelPath           string        `yaml:"model_path" mapstructure:"model_path"`
	ServerURL           string        `yaml:"server_url" mapstructure:"server_url"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	RequestTimeout      time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	BatchSize           int           `yaml:"batch_size" mapstructure:"batch_size"`
}

// GeocodeConfig configures the Nominatim client, retry behavior, and cache.
type GeocodeConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent      string        `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit      float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxRows        int           `yaml:"max_rows" mapstructure:"max_rows"`
	CachePath      string        `yaml:"cache_path" mapstructure:"cache_path"`
}

// LayerConfig points at one boundary shapefile and names the attribute
// column holding each feature's name.
type LayerConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// BoundariesConfig holds the administrative boundary layers, coarsest first.
type BoundariesConfig struct {
	Country LayerConfig `yaml:"country" mapstructure:"country"`
	Region  LayerConfig `yaml:"region" mapstructure:"region"`
	County  LayerConfig `yaml:"county" mapstructure:"county"`
}

// VizConfig configures heatmap and animation rendering.
type VizConfig struct {
	Mode         string        `yaml:"mode" mapstructure:"mode"`
	Width        int           `yaml:"width" mapstructure:"width"`
	Height       int           `yaml:"height" mapstructure:"height"`
	CellSize     int           `yaml:"cell_size" mapstructure:"cell_size"`
	KernelRadius int           `yaml:"kernel_radius" mapstructure:"kernel_radius"`
	Window       time.Duration `yaml:"window" mapstructure:"window"`
	Cumulative   bool          `yaml:"cumulative" mapstructure:"cumulative"`
	FrameDelay   int           `yaml:"frame_delay" mapstructure:"frame_delay"`
}

// OutputConfig configures where stage artifacts land.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
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
	v.SetEnvPrefix("TEXT2MAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("clean.id_column", "tweet_id")
	v.SetDefault("clean.time_column", "created_at")
	v.SetDefault("clean.text_column", "text")
	v.SetDefault("ner.model_path", "data/models/bert_ner")
	v.SetDefault("ner.server_url", "http://localhost:8090")
	v.SetDefault("ner.confidence_threshold", 0.5)
	v.SetDefault("ner.request_timeout", 30*time.Second)
	v.SetDefault("ner.batch_size", 32)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "text2map/1.0")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.initial_backoff", time.Second)
	v.SetDefault("geocode.max_rows", 300)
	v.SetDefault("geocode.cache_path", "data/geocode_cache.db")
	v.SetDefault("viz.mode", "heatmap")
	v.SetDefault("viz.width", 1280)
	v.SetDefault("viz.height", 960)
	v.SetDefault("viz.cell_size", 64)
	v.SetDefault("viz.kernel_radius", 2)
	v.SetDefault("viz.window", 24*time.Hour)
	v.SetDefault("viz.cumulative", false)
	v.SetDefault("viz.frame_delay", 40)
	v.SetDefault("output.dir", "data/processed")

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
