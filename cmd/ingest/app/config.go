package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/lap-energy/internal/openf1"
	"github.com/roman-kulish/lap-energy/internal/storage"
)

const (
	defaultLogLevel    = "info"
	defaultConcurrency = 2
	defaultDBFile      = "lap_energy.sqlite"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings      `yaml:"settings"`
	OpenF1   OpenF1Config  `yaml:"openf1"`
	Session  SessionConfig `yaml:"session"`
	Storage  StorageConfig `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel    string `yaml:"logLevel"`
	Concurrency int    `yaml:"concurrency"` // drivers imported in parallel
}

// OpenF1Config represents the API client settings
type OpenF1Config struct {
	BaseURL string   `yaml:"baseURL"`
	Timeout Duration `yaml:"timeout"`
}

// SessionConfig selects what to import. An empty Drivers list imports every
// driver of the session; an empty Laps list imports whole streams.
type SessionConfig struct {
	Key     int64 `yaml:"key"`
	Drivers []int `yaml:"drivers"`
	Laps    []int `yaml:"laps"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	DBFile        string `yaml:"dbFile"`
	MaxBatchSize  int    `yaml:"maxBatchSize"`
}

// LoadConfig reads, defaults and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	var config Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	config.setDefaults()
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaultLogLevel
	}
	if c.Settings.Concurrency == 0 {
		c.Settings.Concurrency = defaultConcurrency
	}
	if c.OpenF1.BaseURL == "" {
		c.OpenF1.BaseURL = openf1.DefaultBaseURL
	}
	if c.OpenF1.Timeout == 0 {
		c.OpenF1.Timeout = Duration(openf1.DefaultTimeout)
	}
	if c.Storage.DBFile == "" {
		c.Storage.DBFile = defaultDBFile
	}
	if c.Storage.MaxBatchSize == 0 {
		c.Storage.MaxBatchSize = storage.DefaultMaxBatchSize
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Session.Key <= 0 {
		errs = append(errs, fmt.Errorf("app.Config: session key must be positive: %d", c.Session.Key))
	}
	for _, d := range c.Session.Drivers {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("app.Config: invalid driver number: %d", d))
		}
	}
	for _, l := range c.Session.Laps {
		if l <= 0 {
			errs = append(errs, fmt.Errorf("app.Config: invalid lap number: %d", l))
		}
	}
	if c.Settings.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("app.Config: concurrency must be at least 1: %d given", c.Settings.Concurrency))
	}
	if err := c.OpenF1.Timeout.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("app.Config: invalid openf1 timeout: %w", err))
	}
	if c.Storage.MaxBatchSize < 1 {
		errs = append(errs, fmt.Errorf("app.Config: max batch size must be at least 1: %d given", c.Storage.MaxBatchSize))
	}
	return errors.Join(errs...)
}

// Duration is a time.Duration read from strings such as "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) Validate() error {
	if duration := time.Duration(d); duration < time.Second {
		return fmt.Errorf("app.Duration: must be at least 1 second: %s given", duration)
	}
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
