package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ValidateConfig checks configuration values after viper has loaded them.
func ValidateConfig() error {
	var errs []string

	if viper.IsSet("workers") {
		if w := viper.GetInt("workers"); w <= 0 {
			errs = append(errs, fmt.Sprintf("workers must be positive, got: %d", w))
		}
	}

	if viper.IsSet("retries") {
		if r := viper.GetInt("retries"); r < 1 {
			errs = append(errs, fmt.Sprintf("retries must be at least 1, got: %d", r))
		}
	}

	for _, key := range []string{"unit_timeout", "retry_backoff"} {
		if !viper.IsSet(key) {
			continue
		}
		var d time.Duration
		if v := viper.GetDuration(key); v != 0 {
			d = v
		} else if s := viper.GetInt(key); s != 0 {
			d = time.Duration(s) * time.Second
		}
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %v", key, d))
		}
	}

	if viper.IsSet("metrics_port") {
		// Zero disables the metrics endpoint.
		if port := viper.GetInt("metrics_port"); port != 0 && (port < 1 || port > 65535) {
			errs = append(errs, fmt.Sprintf("metrics_port must be between 1 and 65535, got: %d", port))
		}
	}

	if viper.IsSet("store.type") {
		switch strings.ToLower(viper.GetString("store.type")) {
		case "", "sqlite", "sqlite3", "postgres", "postgresql":
		default:
			errs = append(errs, fmt.Sprintf("store.type must be sqlite or postgres, got: %s", viper.GetString("store.type")))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Timeout reads a duration key that may be given as a duration string or as
// an integer number of seconds.
func Timeout(key string) time.Duration {
	if d := viper.GetDuration(key); d != 0 {
		return d
	}
	if s := viper.GetInt(key); s != 0 {
		return time.Duration(s) * time.Second
	}
	return 0
}
