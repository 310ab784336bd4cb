package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	chlog "github.com/charmbracelet/log"
)

var logger = newLogger()

// newLogger builds the process logger. Level comes from LOG_LEVEL.
func newLogger() *chlog.Logger {
	l := chlog.NewWithOptions(os.Stderr, chlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05.000",
	})
	l.SetLevel(parseLogLevel(os.Getenv("LOG_LEVEL")))
	return l
}

// configureLogger re-reads LOG_LEVEL (after .env is loaded) and makes the
// process logger the default for internal packages.
func configureLogger() {
	logger.SetLevel(parseLogLevel(os.Getenv("LOG_LEVEL")))
	chlog.SetDefault(logger)
}

func parseLogLevel(s string) chlog.Level {
	lvl, err := chlog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return chlog.InfoLevel
	}
	return lvl
}

// dirExists returns true if the given path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logWarn("Error checking directory existence: %v", err)
		}
		return false
	}
	return info.IsDir()
}

// formatUptime returns a human-readable string for a duration.
func formatUptime(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())
	switch {
	case hours > 0:
		return fmt.Sprintf("%d hour%s, %d minute%s, %d second%s",
			hours, plural(hours),
			minutes, plural(minutes),
			seconds, plural(seconds))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s, %d second%s",
			minutes, plural(minutes),
			seconds, plural(seconds))
	default:
		return fmt.Sprintf("%d second%s", seconds, plural(seconds))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func getEnvString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// getEnvDuration reads a time.Duration from the environment or returns a fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		logWarn("Invalid duration for %s: %v, using default %v", key, err, fallback)
		return fallback
	}
	return d
}

// getEnvInt reads an int from the environment or returns a fallback.
func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		logWarn("Invalid int for %s: %v, using default %d", key, err, fallback)
		return fallback
	}
	return i
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		logWarn("Invalid float for %s: %v, using default %v", key, err, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		logWarn("Invalid bool for %s: %v, using default %v", key, err, fallback)
		return fallback
	}
	return b
}

// reqPrefix returns "[request_id=...] " when ctx carries a request ID.
func reqPrefix(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if reqID, _ := ctx.Value(requestIDKey).(string); reqID != "" {
		return "[request_id=" + reqID + "] "
	}
	return ""
}

func logDebug(format string, v ...any) {
	logger.Debugf(format, v...)
}

func logInfo(format string, v ...any) {
	logger.Infof(format, v...)
}

func logWarn(format string, v ...any) {
	logger.Warnf(format, v...)
}

func logError(format string, v ...any) {
	logger.Errorf(format, v...)
}

func logFatal(format string, v ...any) {
	logger.Fatalf(format, v...)
}
