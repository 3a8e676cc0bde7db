package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "scheduler.max_parallel")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log output formats
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateRecommend()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			errors = append(errors, ValidationError{
				Field:   "server.addr",
				Value:   c.Server.Addr,
				Message: "must be a host:port address",
			})
		}
	}

	if c.Server.ReadTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.read_timeout_seconds",
			Value:   c.Server.ReadTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	if c.Server.WriteTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.write_timeout_seconds",
			Value:   c.Server.WriteTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	if c.Server.ShutdownTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.shutdown_timeout_seconds",
			Value:   c.Server.ShutdownTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateStore validates the StoreConfig
func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if c.Store.BusyTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "store.busy_timeout_ms",
			Value:   c.Store.BusyTimeoutMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateScheduler validates the SchedulerConfig
func (c *Config) validateScheduler() []ValidationError {
	var errors []ValidationError

	if c.Scheduler.MaxParallel < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.max_parallel",
			Value:   c.Scheduler.MaxParallel,
			Message: "must be non-negative (0 means unbounded)",
		})
	}

	return errors
}

// validateRecommend validates the RecommendConfig
func (c *Config) validateRecommend() []ValidationError {
	var errors []ValidationError

	weights := map[string]float64{
		"recommend.weights.priority":          c.Recommend.Weights.Priority,
		"recommend.weights.due":               c.Recommend.Weights.Due,
		"recommend.weights.fan_out":           c.Recommend.Weights.FanOut,
		"recommend.weights.in_progress_boost": c.Recommend.Weights.InProgressBoost,
	}
	for field, w := range weights {
		if w < 0 || w > 1 {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   w,
				Message: "must be between 0 and 1",
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 disables rotation)",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
