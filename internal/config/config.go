package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// Config represents the complete configuration for the barscan application.
// It includes settings for all commands (decode, batch, pdf, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Reader ReaderConfig `mapstructure:"reader" yaml:"reader" json:"reader"`
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
	Batch  BatchConfig  `mapstructure:"batch" yaml:"batch" json:"batch"`
	PDF    PDFConfig    `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
}

// ReaderConfig contains barcode reader settings shared by every command.
type ReaderConfig struct {
	// Formats is a comma separated list of format names; empty means all supported.
	Formats      string `mapstructure:"formats" yaml:"formats" json:"formats"`
	CropWidth    int    `mapstructure:"crop_width" yaml:"crop_width" json:"crop_width"`
	CropHeight   int    `mapstructure:"crop_height" yaml:"crop_height" json:"crop_height"`
	TryHarder    bool   `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	TryRotate    bool   `mapstructure:"try_rotate" yaml:"try_rotate" json:"try_rotate"`
	TryInvert    bool   `mapstructure:"try_invert" yaml:"try_invert" json:"try_invert"`
	TryDownscale bool   `mapstructure:"try_downscale" yaml:"try_downscale" json:"try_downscale"`
	Pure         bool   `mapstructure:"pure" yaml:"pure" json:"pure"`
	CharacterSet string `mapstructure:"character_set" yaml:"character_set" json:"character_set"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	PoolSize        int             `mapstructure:"pool_size" yaml:"pool_size" json:"pool_size"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits for the server.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// PDFConfig contains PDF scanning settings.
type PDFConfig struct {
	// Pages selects pages such as "1-3,5"; empty means all pages.
	Pages string `mapstructure:"pages" yaml:"pages" json:"pages"`
}

const (
	debugLevel = "debug"
	infoLevel  = "info"
	warnLevel  = "warn"
	errorLevel = "error"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: infoLevel,
		Verbose:  false,
		Reader: ReaderConfig{
			Formats:      "",
			CropWidth:    0,
			CropHeight:   0,
			TryHarder:    true,
			TryRotate:    false,
			TryInvert:    false,
			TryDownscale: false,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			PoolSize:        4,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 10000,
				MaxDataPerDay:     1 << 30,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	validLogLevels := []string{debugLevel, infoLevel, warnLevel, errorLevel}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if _, err := barcode.ParseFormatSet(c.Reader.Formats); err != nil {
		return fmt.Errorf("invalid reader formats: %w", err)
	}
	if c.Reader.CropWidth < 0 || c.Reader.CropHeight < 0 {
		return fmt.Errorf("invalid crop size: %dx%d (must not be negative)", c.Reader.CropWidth, c.Reader.CropHeight)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if err := validatePositive(c.Server.MaxUploadMB, "server max upload size"); err != nil {
		return err
	}
	if err := validatePositive(c.Server.TimeoutSec, "server timeout"); err != nil {
		return err
	}
	if err := validatePositive(c.Server.PoolSize, "server reader pool size"); err != nil {
		return err
	}
	if c.Server.RateLimit.Enabled {
		if err := validatePositive(c.Server.RateLimit.RequestsPerMinute, "rate limit requests per minute"); err != nil {
			return err
		}
	}

	if err := validatePositive(c.Batch.Workers, "batch workers"); err != nil {
		return err
	}

	return nil
}

// FormatSet parses the configured reader formats.
func (c *Config) FormatSet() (barcode.FormatSet, error) {
	return barcode.ParseFormatSet(c.Reader.Formats)
}

// ToReaderOptions converts the reader section to barcode.Options.
func (c *Config) ToReaderOptions() barcode.Options {
	return barcode.Options{
		TryHarder:    c.Reader.TryHarder,
		TryRotate:    c.Reader.TryRotate,
		TryInvert:    c.Reader.TryInvert,
		TryDownscale: c.Reader.TryDownscale,
		Pure:         c.Reader.Pure,
		CharacterSet: c.Reader.CharacterSet,
	}
}

// YAML renders the configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func validatePositive(value int, name string) error {
	if value < 1 {
		return fmt.Errorf("invalid %s: %d (must be positive)", name, value)
	}
	return nil
}
