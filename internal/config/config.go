// Package config builds the immutable runtime configuration from defaults,
// an optional YAML file, a .env file, PDFTOOLS_* environment variables and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PDFTOOLS"

// Keys.
const (
	KeyAddr           = "addr"
	KeyScratchDir     = "scratch_dir"
	KeyMaxUploadBytes = "max_upload_bytes"
	KeyOfficeBinary   = "office_binary"
	KeyConvertTimeout = "convert_timeout"
	KeyRetention      = "retention"
	KeySweepInterval  = "sweep_interval"
	KeyRateLimit      = "rate_limit"
	KeyAllowedOrigins = "allowed_origins"
	KeyLogLevel       = "log_level"
	KeyMergeWorkers   = "merge_workers"
	KeyOptimizeOutput = "optimize_output"
)

// Config is built once at startup and passed by value.
type Config struct {
	Addr           string
	ScratchDir     string
	MaxUploadBytes int64
	OfficeBinary   string
	ConvertTimeout time.Duration
	// Retention is how long scratch files are kept. Zero keeps them forever.
	Retention      time.Duration
	SweepInterval  time.Duration
	// RateLimit is POST requests per minute per client IP. Zero disables it.
	RateLimit      int
	AllowedOrigins []string
	LogLevel       string
	MergeWorkers   int
	OptimizeOutput bool

	// WordToPDF is the document-to-PDF capability flag, resolved at startup.
	WordToPDF bool
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyScratchDir, "./uploads")
	v.SetDefault(KeyMaxUploadBytes, "64MiB")
	v.SetDefault(KeyOfficeBinary, "soffice")
	v.SetDefault(KeyConvertTimeout, "2m")
	v.SetDefault(KeyRetention, "0s")
	v.SetDefault(KeySweepInterval, "10m")
	v.SetDefault(KeyRateLimit, 0)
	v.SetDefault(KeyAllowedOrigins, []string{"*"})
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMergeWorkers, 4)
	v.SetDefault(KeyOptimizeOutput, false)
}

// Configure wires every source into v: defaults, the YAML file (configFile,
// or pdftools.yaml in the working directory or ~/.config/pdftools), the
// .env file and the environment. It returns the config file used, if any.
func Configure(v *viper.Viper, configFile string) (string, error) {
	// A missing .env is normal; the environment wins over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pdftools")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pdftools"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return "", fmt.Errorf("failed to read config file: %w", err)
		}
		return "", nil
	}
	return v.ConfigFileUsed(), nil
}

// Load builds and validates a Config from v.
func Load(v *viper.Viper) (Config, error) {
	maxUpload, err := parseBytes(v.GetString(KeyMaxUploadBytes))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyMaxUploadBytes, err)
	}

	cfg := Config{
		Addr:           v.GetString(KeyAddr),
		ScratchDir:     v.GetString(KeyScratchDir),
		MaxUploadBytes: maxUpload,
		OfficeBinary:   v.GetString(KeyOfficeBinary),
		ConvertTimeout: v.GetDuration(KeyConvertTimeout),
		Retention:      v.GetDuration(KeyRetention),
		SweepInterval:  v.GetDuration(KeySweepInterval),
		RateLimit:      v.GetInt(KeyRateLimit),
		AllowedOrigins: splitList(v.GetStringSlice(KeyAllowedOrigins)),
		LogLevel:       strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		MergeWorkers:   v.GetInt(KeyMergeWorkers),
		OptimizeOutput: v.GetBool(KeyOptimizeOutput),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.ScratchDir == "":
		return fmt.Errorf("%s must be set", KeyScratchDir)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("%s must be positive", KeyMaxUploadBytes)
	case c.ConvertTimeout < 0:
		return fmt.Errorf("%s must not be negative", KeyConvertTimeout)
	case c.Retention < 0:
		return fmt.Errorf("%s must not be negative", KeyRetention)
	case c.Retention > 0 && c.SweepInterval <= 0:
		return fmt.Errorf("%s must be positive when %s is set", KeySweepInterval, KeyRetention)
	case c.RateLimit < 0:
		return fmt.Errorf("%s must not be negative", KeyRateLimit)
	case c.MergeWorkers <= 0:
		return fmt.Errorf("%s must be positive", KeyMergeWorkers)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be one of debug, info, warn, error; got %q", KeyLogLevel, c.LogLevel)
	}
	return nil
}

// WithWordToPDF returns a copy of c with the capability flag set.
func (c Config) WithWordToPDF(available bool) Config {
	c.WordToPDF = available
	return c
}

// MaxUploadHuman renders the upload limit for people, e.g. "64 MiB".
func (c Config) MaxUploadHuman() string {
	return humanize.IBytes(uint64(c.MaxUploadBytes))
}

// parseBytes accepts plain byte counts and sizes such as "64MiB" or "10 MB".
func parseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// splitList flattens comma-separated entries, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
