package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "barscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BARSCAN"
)

// Loader resolves a Config from defaults, an optional YAML file and the
// environment, in increasing precedence.
type Loader struct {
	v *viper.Viper
}

// NewIsolatedLoader creates a loader with its own viper instance, so command
// trees built in tests never share flag bindings.
func NewIsolatedLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load reads barscan.yaml from the search paths, if present, layers
// BARSCAN_* environment variables over it and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.LoadWithoutValidation()
	if err != nil {
		return nil, err
	}
	return validated(cfg)
}

// LoadWithoutValidation is Load minus the final Validate call.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
	l.prepare()

	err := l.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return l.unmarshal()
}

// LoadWithFile reads configFile instead of searching. An empty path falls
// back to Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.prepare()
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	cfg, err := l.unmarshal()
	if err != nil {
		return nil, err
	}
	return validated(cfg)
}

func validated(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// GetConfigFileUsed returns the path of the file that was read, if any.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper exposes the viper instance so cobra flags can be bound to it.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// prepare wires BARSCAN_SERVER_PORT style variables and registers every
// default, which viper needs to resolve env vars for nested keys.
func (l *Loader) prepare() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
	for key, value := range defaultSettings(DefaultConfig()) {
		l.v.SetDefault(key, value)
	}
}

func defaultSettings(d Config) map[string]any {
	return map[string]any{
		"log_level": d.LogLevel,
		"verbose":   d.Verbose,

		"reader.formats":       d.Reader.Formats,
		"reader.crop_width":    d.Reader.CropWidth,
		"reader.crop_height":   d.Reader.CropHeight,
		"reader.try_harder":    d.Reader.TryHarder,
		"reader.try_rotate":    d.Reader.TryRotate,
		"reader.try_invert":    d.Reader.TryInvert,
		"reader.try_downscale": d.Reader.TryDownscale,
		"reader.pure":          d.Reader.Pure,
		"reader.character_set": d.Reader.CharacterSet,

		"output.format": d.Output.Format,
		"output.file":   d.Output.File,

		"server.host":                            d.Server.Host,
		"server.port":                            d.Server.Port,
		"server.cors_origin":                     d.Server.CORSOrigin,
		"server.max_upload_mb":                   d.Server.MaxUploadMB,
		"server.timeout_sec":                     d.Server.TimeoutSec,
		"server.shutdown_timeout":                d.Server.ShutdownTimeout,
		"server.pool_size":                       d.Server.PoolSize,
		"server.rate_limit.enabled":              d.Server.RateLimit.Enabled,
		"server.rate_limit.requests_per_minute":  d.Server.RateLimit.RequestsPerMinute,
		"server.rate_limit.requests_per_hour":    d.Server.RateLimit.RequestsPerHour,
		"server.rate_limit.max_requests_per_day": d.Server.RateLimit.MaxRequestsPerDay,
		"server.rate_limit.max_data_per_day":     d.Server.RateLimit.MaxDataPerDay,

		"batch.workers":           d.Batch.Workers,
		"batch.recursive":         d.Batch.Recursive,
		"batch.include":           d.Batch.Include,
		"batch.exclude":           d.Batch.Exclude,
		"batch.continue_on_error": d.Batch.ContinueOnError,

		"pdf.pages": d.PDF.Pages,
	}
}

// GenerateDefaultConfigFile writes the default configuration as YAML.
func GenerateDefaultConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	defaults := DefaultConfig()
	data, err := defaults.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write config file %s: %w", filename, err)
	}
	return nil
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{".", "config"}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "barscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "barscan"))
	}

	paths = append(paths, "/etc/barscan")

	return paths
}
