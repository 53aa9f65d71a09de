package env

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/agentuity/go-memoize/logger"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"
)

const (
	// LogFormatEnv selects the log format when --log-format is not given.
	LogFormatEnv = "MEMOIZE_LOG_FORMAT"
)

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// DurationFlagOrEnv is FlagOrEnv for durations. Besides Go duration units it
// accepts days and weeks ("1d12h", "2w").
func DurationFlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue time.Duration) (time.Duration, error) {
	val := FlagOrEnv(cmd, flagName, envName, "")
	if val == "" {
		return defaultValue, nil
	}
	d, err := str2duration.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q for --%s: %w", val, flagName, err)
	}
	return d, nil
}

func LogLevel(cmd *cobra.Command) logger.LogLevel {
	level, _ := logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.LevelEnv, "info"))
	return level
}

// NewLogger returns a logger by first checking the cobra.Command log-level flag, then use the
// MEMOIZE_LOG_LEVEL environment value and falling back to the info logger level. The format is
// "console" unless --log-format or MEMOIZE_LOG_FORMAT asks for "json".
func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	level := LogLevel(cmd)
	if strings.EqualFold(FlagOrEnv(cmd, "log-format", LogFormatEnv, "console"), "json") {
		return logger.NewJSONLogger(level)
	}
	return logger.NewConsoleLogger(level)
}
