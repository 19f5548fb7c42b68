package activity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMonitoring is returned when a setting is changed while a session is running.
var ErrMonitoring = errors.New("monitoring is active")

// ConfigurationError reports an invalid idle threshold.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %s: %v", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// maxIdleMinutes is the largest minute count a time.Duration can hold.
const maxIdleMinutes = math.MaxInt64 / int64(time.Minute)

// ParseIdleMinutes converts a user-entered number of minutes into an idle threshold.
func ParseIdleMinutes(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	minutes, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ConfigurationError{Field: "idle minutes", Value: s, Reason: "not a whole number", Err: err}
	}
	if minutes <= 0 {
		return 0, &ConfigurationError{Field: "idle minutes", Value: s, Reason: "must be positive"}
	}
	if int64(minutes) > maxIdleMinutes {
		return 0, &ConfigurationError{Field: "idle minutes", Value: s, Reason: "too large"}
	}
	return time.Duration(minutes) * time.Minute, nil
}

func validateThreshold(threshold time.Duration) error {
	if threshold <= 0 {
		return &ConfigurationError{Field: "idle threshold", Value: threshold.String(), Reason: "must be positive"}
	}
	return nil
}
