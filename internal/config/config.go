package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces all environment variables
const EnvPrefix = "DEMOREPORT"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	CacheDir   string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// CacheConfig selects and tunes the analysis cache backend
type CacheConfig struct {
	Backend            string            `yaml:"backend" envconfig:"BACKEND" validate:"oneof=file sqlite object"`
	SQLiteFile         string            `yaml:"sqlite_file" envconfig:"SQLITE_FILE"`
	KeepSnapshots      int               `yaml:"keep_snapshots" envconfig:"KEEP_SNAPSHOTS" validate:"min=1,max=10"`
	BloomEnabled       bool              `yaml:"bloom_enabled" envconfig:"BLOOM_ENABLED"`
	BloomCapacity      uint              `yaml:"bloom_capacity" envconfig:"BLOOM_CAPACITY" validate:"min=1"`
	BloomFalsePositive float64           `yaml:"bloom_false_positive" envconfig:"BLOOM_FALSE_POSITIVE" validate:"gt=0,lt=1"`
	ObjectStore        ObjectStoreConfig `yaml:"object_store" envconfig:"OBJECT_STORE"`
}

// ObjectStoreConfig contains S3-compatible object storage settings
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKey string `yaml:"access_key" envconfig:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" envconfig:"SECRET_KEY"`
	Region    string `yaml:"region" envconfig:"REGION"`
	Bucket    string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix    string `yaml:"prefix" envconfig:"PREFIX"`
	UseSSL    bool   `yaml:"use_ssl" envconfig:"USE_SSL"`
}

// ExportConfig contains defaults for export runs
type ExportConfig struct {
	ForceAnalyze     bool          `yaml:"force_analyze" envconfig:"FORCE_ANALYZE"`
	CacheReadPolicy  string        `yaml:"cache_read_policy" envconfig:"CACHE_READ_POLICY" validate:"oneof=fail reanalyze"`
	Format           string        `yaml:"format" envconfig:"FORMAT" validate:"oneof=xlsx csv"`
	BatchConcurrency int           `yaml:"batch_concurrency" envconfig:"BATCH_CONCURRENCY" validate:"min=1,max=64"`
	AnalysisTimeout  time.Duration `yaml:"analysis_timeout" envconfig:"ANALYSIS_TIMEOUT" validate:"min=0"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus none"`
	MetricsFile    string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"min=0,max=1"`
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment. An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Env overrides file values; fields without a matching variable are left alone
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Cache.Backend == "object" {
		if err := c.Cache.ObjectStore.Validate(); err != nil {
			return fmt.Errorf("object store: %w", err)
		}
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path is required for output %q", c.Logging.Output)
	}

	return nil
}

// Validate checks the settings needed to reach the object store
func (o ObjectStoreConfig) Validate() error {
	if strings.TrimSpace(o.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if strings.Contains(o.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", o.Endpoint)
	}
	if strings.TrimSpace(o.AccessKey) == "" || strings.TrimSpace(o.SecretKey) == "" {
		return fmt.Errorf("access key and secret key are required")
	}
	if strings.TrimSpace(o.Bucket) == "" {
		return fmt.Errorf("bucket is required")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"demoreport.yaml",
		"configs/demoreport.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/demoreport.log",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			CacheDir:   "data/cache",
			ReportsDir: "data/reports",
			LogsDir:    "logs",
		},
		Cache: CacheConfig{
			Backend:            "file",
			SQLiteFile:         "cache.db",
			KeepSnapshots:      2,
			BloomEnabled:       true,
			BloomCapacity:      10000,
			BloomFalsePositive: 0.01,
			ObjectStore: ObjectStoreConfig{
				Region: "us-east-1",
				Prefix: "demoreport/cache",
			},
		},
		Export: ExportConfig{
			ForceAnalyze:     false,
			CacheReadPolicy:  "fail",
			Format:           "xlsx",
			BatchConcurrency: 2,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "demoreport",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}
