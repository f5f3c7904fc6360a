package config_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/contractkit/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Flatten: config.FlattenConfig{Output: "build/source.sol"},
		Size: config.SizeConfig{
			Manifest: ".build/contracts.json",
			Limit:    "24576",
			Format:   "text",
		},
		ABI:     config.ABIConfig{Output: "build/abi.json", Validate: true},
		Logging: config.LoggingConfig{Level: "info"},
	}
}

func TestValidate_ValidConfig_NoError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_EmptyOutput_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Flatten.Output = "  "
	require.ErrorIs(t, cfg.Validate(), config.ErrEmptyOutput)

	cfg = validConfig()
	cfg.ABI.Output = ""
	require.ErrorIs(t, cfg.Validate(), config.ErrEmptyOutput)
}

func TestValidate_InvalidLimit_ReturnsError(t *testing.T) {
	t.Parallel()

	for _, limit := range []string{"0", "-1", "lots", "2 GiB"} {
		cfg := validConfig()
		cfg.Size.Limit = limit

		assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidLimit, limit)
	}
}

func TestValidate_InvalidFormat_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Size.Format = "xml"

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidFormat)
}

func TestValidate_InvalidLogLevel_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Logging.Level = "loud"

	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidLogLevel)
}

func TestLimitBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		limit string
		want  int
	}{
		{limit: "", want: 0},
		{limit: "24576", want: 24576},
		{limit: "24 KiB", want: 24576},
		{limit: "48KiB", want: 49152},
		{limit: "24kB", want: 24000},
	}

	for _, tt := range tests {
		got, err := config.SizeConfig{Limit: tt.limit}.LimitBytes()
		require.NoError(t, err, tt.limit)
		assert.Equal(t, tt.want, got, tt.limit)
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	level, err := config.LoggingConfig{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = config.LoggingConfig{}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}
