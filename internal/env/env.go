// Package env holds small helpers for reading process environment values.
package env

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Prefix is prepended to every environment variable stipple reads.
const Prefix = "STIPPLE_"

const keyValueParts = 2

// ToMap turns KEY=VALUE assignments into a map. Entries without '=' are dropped.
func ToMap(assignments []string) map[string]string {
	return lo.FromPairs(lo.FilterMap(assignments, func(item string, _ int) (lo.Entry[string, string], bool) {
		parts := strings.SplitN(item, "=", keyValueParts)
		if len(parts) != keyValueParts {
			return lo.Entry[string, string]{}, false
		}

		return lo.Entry[string, string]{Key: parts[0], Value: parts[1]}, true
	}))
}

// Prefixed returns the subset of the current environment whose keys start
// with Prefix, keyed without the prefix and lowercased.
func Prefixed() map[string]string {
	all := ToMap(os.Environ())
	out := make(map[string]string)
	for k, v := range all {
		if rest, ok := strings.CutPrefix(k, Prefix); ok && rest != "" {
			out[strings.ToLower(rest)] = v
		}
	}

	return out
}

// ErrInvalidBool is returned when a string cannot be parsed as a boolean.
var ErrInvalidBool = errors.New("invalid boolean value")

// ParseBool interprets a string as a boolean.
//
// Accepted values (case-insensitive, after trimming):
//   - "true", "yes", "1"  -> true
//   - "false", "no", "0"  -> false
//   - "" (empty)          -> false, nil error
//   - any other non-empty -> false, ErrInvalidBool
func ParseBool(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidBool, value)
	}
}

// ParseBoolEnv reads an environment variable and parses it with ParseBool.
func ParseBoolEnv(envVar string) (bool, error) {
	return ParseBool(os.Getenv(envVar))
}

// FailsafeParseBoolEnv returns defaultValue when envVar is unset, empty or invalid.
func FailsafeParseBoolEnv(envVar string, defaultValue bool) bool {
	v, ok := os.LookupEnv(envVar)
	if !ok || v == "" {
		return defaultValue
	}

	b, err := ParseBool(v)
	if err != nil {
		return defaultValue
	}

	return b
}

// FailsafeDurationEnv returns defaultValue when envVar is unset or not a valid duration.
func FailsafeDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return defaultValue
	}

	return d
}

var boolCIVars = []string{ //nolint:gochecknoglobals // lookup table
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"BUILDKITE",
}

var presenceCIVars = []string{ //nolint:gochecknoglobals // lookup table
	"JENKINS_URL",
}

// CIEnvVarNames returns every environment variable that InCI checks.
func CIEnvVarNames() []string {
	names := make([]string, 0, len(boolCIVars)+len(presenceCIVars))
	names = append(names, boolCIVars...)
	names = append(names, presenceCIVars...)

	return names
}

// InCI reports whether the process appears to run under a CI system.
// The dev session uses it to avoid opening a browser.
func InCI() bool {
	for _, v := range boolCIVars {
		if val, err := ParseBoolEnv(v); err == nil && val {
			return true
		}
	}

	for _, v := range presenceCIVars {
		if os.Getenv(v) != "" {
			return true
		}
	}

	return false
}
