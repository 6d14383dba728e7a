package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/yaklabco/stipple/internal/watch"
)

const (
	maxPort        = 65535
	privilegedPort = 1024
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("config warning: %s: %s", w.Field, w.Message)
}

// ValidationResults holds the results of configuration validation.
type ValidationResults struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are validation errors.
func (r ValidationResults) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (r ValidationResults) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// ErrorMessage returns a combined error message for all validation errors.
func (r ValidationResults) ErrorMessage() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// WriteWarnings writes all warnings to the given writer.
func (r ValidationResults) WriteWarnings(w io.Writer) {
	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintln(w, warn.String())
	}
}

func (r *ValidationResults) fail(field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResults) warn(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the configuration for errors and warnings.
// It returns errors for invalid values that would cause runtime issues,
// and warnings for issues that can be safely ignored.
func (c *Config) Validate() ValidationResults {
	var result ValidationResults

	switch c.Layout {
	case LayoutBuild, LayoutInPlace:
	default:
		result.fail("layout", "invalid layout %q, must be %q or %q", c.Layout, LayoutBuild, LayoutInPlace)
	}

	if strings.TrimSpace(c.Sass.Binary) == "" {
		result.fail("sass.binary", "must not be empty")
	}

	switch {
	case c.Server.Port < 0 || c.Server.Port > maxPort:
		result.fail("server.port", "port %d out of range 0-%d", c.Server.Port, maxPort)
	case c.Server.Port > 0 && c.Server.Port < privilegedPort:
		result.warn("server.port", "port %d is privileged and may need elevated permissions", c.Server.Port)
	}

	if _, err := watch.ParsePolicy(c.Watch.Policy); err != nil {
		result.fail("watch.policy", "%v", err)
	}
	if c.Watch.Debounce < 0 {
		result.fail("watch.debounce", "must not be negative, got %s", c.Watch.Debounce)
	}

	if err := plumbing.NewBranchReferenceName(c.Deploy.Branch).Validate(); c.Deploy.Branch == "" || err != nil {
		result.fail("deploy.branch", "invalid branch name %q", c.Deploy.Branch)
	}

	return result
}
