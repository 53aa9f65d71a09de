package env

import (
	"fmt"
	"testing"
	"time"

	"github.com/agentuity/go-memoize/logger"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagOrEnv(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("test-flag", "", "Test flag")

	cmd.Flags().Set("test-flag", "flag-value")
	assert.Equal(t, "flag-value", FlagOrEnv(cmd, "test-flag", "TEST_ENV", "default"))

	cmd.Flags().Set("test-flag", "")
	t.Setenv("TEST_ENV", "env-value")
	assert.Equal(t, "env-value", FlagOrEnv(cmd, "test-flag", "TEST_ENV", "default"))

	assert.Equal(t, "default", FlagOrEnv(cmd, "test-flag", "OTHER_TEST_ENV", "default"))
}

func TestFlagOrEnvUnknownFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	t.Setenv("TEST_ENV", "env-value")
	assert.Equal(t, "env-value", FlagOrEnv(cmd, "missing", "TEST_ENV", "default"))
}

func TestDurationFlagOrEnv(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("ttl", "", "TTL")

	d, err := DurationFlagOrEnv(cmd, "ttl", "TEST_TTL", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)

	t.Setenv("TEST_TTL", "1d2h")
	d, err = DurationFlagOrEnv(cmd, "ttl", "TEST_TTL", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 26*time.Hour, d)

	cmd.Flags().Set("ttl", "1500ms")
	d, err = DurationFlagOrEnv(cmd, "ttl", "TEST_TTL", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	cmd.Flags().Set("ttl", "soon")
	_, err = DurationFlagOrEnv(cmd, "ttl", "TEST_TTL", time.Second)
	assert.ErrorContains(t, err, "--ttl")
}

func TestLogLevel(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "Log level")

	testCases := []struct {
		name      string
		flagValue string
		envValue  string
		expected  logger.LogLevel
	}{
		{"debug level via flag", "debug", "", logger.LevelDebug},
		{"debug level via env", "", "DEBUG", logger.LevelDebug},
		{"warn level via flag", "warn", "", logger.LevelWarn},
		{"warn level via env", "", "WARN", logger.LevelWarn},
		{"error level via flag", "error", "", logger.LevelError},
		{"error level via env", "", "ERROR", logger.LevelError},
		{"trace level via flag", "trace", "", logger.LevelTrace},
		{"trace level via env", "", "TRACE", logger.LevelTrace},
		{"none level via flag", "none", "", logger.LevelNone},
		{"flag wins over env", "error", "TRACE", logger.LevelError},
		{"unknown level", "loud", "", logger.LevelInfo},
		{"default level", "", "", logger.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd.Flags().Set("log-level", tc.flagValue)
			t.Setenv(logger.LevelEnv, tc.envValue)
			if tc.envValue == "" {
				// an empty variable still counts as set
				t.Setenv(logger.LevelEnv, "info")
			}
			assert.Equal(t, tc.expected, LogLevel(cmd))
		})
	}
}

func TestNewLogger(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "Log level")
	cmd.Flags().String("log-format", "", "Log format")

	cmd.Flags().Set("log-level", "debug")
	log := NewLogger(cmd)
	assert.True(t, log.IsDebugEnabled())
	assert.False(t, log.IsTraceEnabled())
	assert.Equal(t, "*logger.consoleLogger", fmt.Sprintf("%T", log))

	cmd.Flags().Set("log-format", "JSON")
	assert.Equal(t, "*logger.jsonLogger", fmt.Sprintf("%T", NewLogger(cmd)))
}
