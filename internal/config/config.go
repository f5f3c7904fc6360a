// Package config loads contractkit settings from .contractkit.yaml, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/contractkit/pkg/safeconv"
)

// Config is the top-level configuration struct for contractkit.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Flatten   FlattenConfig   `mapstructure:"flatten"`
	Size      SizeConfig      `mapstructure:"size"`
	ABI       ABIConfig       `mapstructure:"abi"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// FlattenConfig holds flatten command settings.
type FlattenConfig struct {
	Output string `mapstructure:"output"`
}

// SizeConfig holds size report settings.
type SizeConfig struct {
	Manifest string `mapstructure:"manifest"`
	// Limit is a byte count, either plain ("24576") or humanized ("24 KiB").
	Limit  string `mapstructure:"limit"`
	Format string `mapstructure:"format"`
}

// ABIConfig holds ABI export settings.
type ABIConfig struct {
	Output   string `mapstructure:"output"`
	Validate bool   `mapstructure:"validate"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// sizeFormats lists the accepted size.format values.
var sizeFormats = []string{"text", "table", "json", "yaml"}

// logLevels maps logging.level values to slog levels.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidLimit indicates size.limit is not a positive byte count.
	ErrInvalidLimit = errors.New("size.limit must be a positive byte count")
	// ErrInvalidFormat indicates size.format is not a known report format.
	ErrInvalidFormat = errors.New("size.format must be one of text, table, json, yaml")
	// ErrInvalidLogLevel indicates logging.level is unknown.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
	// ErrEmptyOutput indicates an output path is blank.
	ErrEmptyOutput = errors.New("output path must not be empty")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	outputErr := c.validateOutputs()
	if outputErr != nil {
		return outputErr
	}

	_, limitErr := c.Size.LimitBytes()
	if limitErr != nil {
		return limitErr
	}

	if c.Size.Format != "" && !slices.Contains(sizeFormats, c.Size.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Size.Format)
	}

	_, levelErr := c.Logging.SlogLevel()

	return levelErr
}

func (c *Config) validateOutputs() error {
	if strings.TrimSpace(c.Flatten.Output) == "" {
		return fmt.Errorf("flatten.output: %w", ErrEmptyOutput)
	}

	if strings.TrimSpace(c.ABI.Output) == "" {
		return fmt.Errorf("abi.output: %w", ErrEmptyOutput)
	}

	return nil
}

// LimitBytes parses Limit. An empty limit yields zero, meaning the
// EIP-170 default.
func (s SizeConfig) LimitBytes() (int, error) {
	if strings.TrimSpace(s.Limit) == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s.Limit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
	}

	if n == 0 || n > maxLimitBytes {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, s.Limit)
	}

	limit, err := safeconv.Uint64ToInt(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidLimit, err)
	}

	return limit, nil
}

// SlogLevel maps Level to a slog level. An empty level is info.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	if l.Level == "" {
		return slog.LevelInfo, nil
	}

	level, ok := logLevels[strings.ToLower(l.Level)]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

// maxLimitBytes caps size.limit well above any EVM code size limit.
const maxLimitBytes = 1 << 30
