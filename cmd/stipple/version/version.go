// Package version reports the stipple build version.
package version

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/yaklabco/stipple/internal/ui"
)

// Version is the CLI version, set at build time with
//
//	-ldflags "-X github.com/yaklabco/stipple/cmd/stipple/version.Version=v0.0.0"
//
// When left as "dev" the version comes from Go build info.
var Version = "dev" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// Commit is the git commit hash, set at build time like Version.
var Commit = "" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// BuildDate is the RFC3339 build timestamp, set at build time like Version.
var BuildDate = "" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

func buildSetting(key string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return ""
	}
	for _, s := range bi.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// EffectiveVersion returns, in order of preference: the ldflags Version,
// the module version from `go install module@version`, the VCS revision
// (with "-dirty" for modified trees), or "dev".
func EffectiveVersion(_ context.Context) string {
	if v := strings.TrimSpace(Version); v != "" && v != "dev" {
		return v
	}

	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		if mv := strings.TrimSpace(bi.Main.Version); mv != "" && mv != "(devel)" {
			return mv
		}
	}
	if rev := buildSetting("vcs.revision"); rev != "" {
		if buildSetting("vcs.modified") == "true" {
			return rev + "-dirty"
		}
		return rev
	}

	return "dev"
}

// EffectiveCommit returns the ldflags Commit or the VCS revision.
func EffectiveCommit(_ context.Context) string {
	if c := strings.TrimSpace(Commit); c != "" {
		return c
	}
	return buildSetting("vcs.revision")
}

// EffectiveBuildTime returns the build time from BuildDate or the VCS
// commit time.
func EffectiveBuildTime() (time.Time, bool) {
	for _, raw := range []string{strings.TrimSpace(BuildDate), buildSetting("vcs.time")} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parts(ctx context.Context, version, commit, when func(...string) string) []string {
	out := []string{version(EffectiveVersion(ctx))}

	// A revision-only version already names the commit.
	if c := EffectiveCommit(ctx); c != "" && !strings.HasPrefix(EffectiveVersion(ctx), c) {
		out = append(out, commit(c))
	}
	if t, ok := EffectiveBuildTime(); ok {
		out = append(out, when(t.In(time.Local).Format(time.RFC3339)))
	}
	return out
}

// OverallVersionString renders version, commit and build time.
func OverallVersionString(ctx context.Context) string {
	plain := func(s ...string) string { return strings.Join(s, "") }
	return strings.Join(parts(ctx, plain, plain, plain), "-")
}

// OverallVersionStringColorized renders the version line with fang's colors.
func OverallVersionStringColorized(ctx context.Context) string {
	cs := ui.GetFangScheme()

	versionStyle := lipgloss.NewStyle().Foreground(cs.QuotedString)
	commitStyle := lipgloss.NewStyle().Foreground(cs.Program)
	timeStyle := lipgloss.NewStyle().Foreground(cs.Flag)
	sepStyle := lipgloss.NewStyle().Foreground(cs.Base)

	return strings.Join(parts(ctx, versionStyle.Render, commitStyle.Render, timeStyle.Render), sepStyle.Render("-"))
}
