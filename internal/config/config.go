package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Vendor    VendorConfig    `yaml:"vendor" envconfig:"VENDOR"`
	Valuation ValuationConfig `yaml:"valuation" envconfig:"VALUATION"`
	Batch     BatchConfig     `yaml:"batch" envconfig:"BATCH"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Status    StatusConfig    `yaml:"status" envconfig:"STATUS"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// VendorConfig contains CAP endpoint addresses and credentials.
// SubscriberID and Password have no defaults on purpose; they must be
// injected via environment or config file.
type VendorConfig struct {
	LiveURL      string        `yaml:"live_url" envconfig:"LIVE_URL" default:"https://soap.cap.co.uk/usedvalueslive/capusedvalueslive.asmx/GetUsedLive_IdRegDateMileage"`
	CAPIDURL     string        `yaml:"capid_url" envconfig:"CAPID_URL" default:"https://soap.cap.co.uk/vrm/capvrm.asmx/CAPIDValuation"`
	VRMURL       string        `yaml:"vrm_url" envconfig:"VRM_URL" default:"https://soap.cap.co.uk/vrm/capvrm.asmx/VRMValuation"`
	SubscriberID string        `yaml:"subscriber_id" envconfig:"SUBSCRIBER_ID" validate:"required"`
	Password     string        `yaml:"password" envconfig:"PASSWORD" validate:"required"`
	Database     string        `yaml:"database" envconfig:"DATABASE" default:"CAR"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	RateLimit    float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT" default:"50"`
	RateBurst    int           `yaml:"rate_burst" envconfig:"RATE_BURST" default:"10"`
}

// ValuationConfig contains valuation policy configuration
type ValuationConfig struct {
	// FixedDate is the historical comparison date (YYYY-MM-DD); empty disables
	// the fixed-date valuation.
	FixedDate string `yaml:"fixed_date" envconfig:"FIXED_DATE" validate:"omitempty,datetime=2006-01-02"`
	// Rounding selects the mileage rounding policy: "up" or "nearest"
	Rounding string `yaml:"rounding" envconfig:"ROUNDING" default:"up" validate:"oneof=up nearest"`
}

// BatchConfig contains batch execution configuration
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" envconfig:"CONCURRENCY" default:"40" validate:"min=1,max=64"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// StatusConfig contains the optional ops HTTP server configuration
type StatusConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Port    int  `yaml:"port" envconfig:"PORT" default:"8090" validate:"min=1,max=65535"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	InputDir  string `yaml:"input_dir" envconfig:"INPUT_DIR" default:"data/input"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"data/output"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables (prefix CAP_) and an
// optional YAML file. Environment values and tag defaults are applied first;
// the file fills in whatever they left unset.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CAP", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileCfg, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// mergeConfigs fills fields the environment left unset from the config file
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Vendor.SubscriberID == "" {
		envConfig.Vendor.SubscriberID = fileConfig.Vendor.SubscriberID
	}
	if envConfig.Vendor.Password == "" {
		envConfig.Vendor.Password = fileConfig.Vendor.Password
	}
	if envConfig.Valuation.FixedDate == "" {
		envConfig.Valuation.FixedDate = fileConfig.Valuation.FixedDate
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	return envConfig
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid or missing values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	return nil
}

// ValuationDates returns the valuation dates to request for each record:
// always today, plus the fixed comparison date when configured.
func (c *Config) ValuationDates(now time.Time) []string {
	dates := []string{now.Format("2006-01-02")}
	if c.Valuation.FixedDate != "" {
		dates = append(dates, c.Valuation.FixedDate)
	}
	return dates
}
