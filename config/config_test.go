package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the user config at an empty directory so a developer's
// own settings cannot leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	// Load with all sources disabled to get pure defaults
	cfg, err := Load(&LoadOptions{
		ProjectDir:        t.TempDir(),
		SkipUserConfig:    true,
		SkipProjectConfig: true,
		SkipEnv:           true,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultConfig()
	if cfg.Layout != want.Layout {
		t.Errorf("Layout = %q, want %q", cfg.Layout, want.Layout)
	}
	if cfg.Sass.Binary != DefaultSassBinary {
		t.Errorf("Sass.Binary = %q, want %q", cfg.Sass.Binary, DefaultSassBinary)
	}
	if cfg.Server != want.Server {
		t.Errorf("Server = %+v, want %+v", cfg.Server, want.Server)
	}
	if cfg.Watch != want.Watch {
		t.Errorf("Watch = %+v, want %+v", cfg.Watch, want.Watch)
	}
	if !cfg.CSS.Prefix || !cfg.CSS.SourceMap {
		t.Errorf("CSS = %+v, want prefix and source map on", cfg.CSS)
	}
	if cfg.Deploy.Branch != DefaultDeployBranch || !cfg.Deploy.Push {
		t.Errorf("Deploy = %+v, want branch %q with push", cfg.Deploy, DefaultDeployBranch)
	}
	if cfg.Deploy.CacheDir == "" {
		t.Error("Deploy.CacheDir should default to the XDG cache")
	}
	if cfg.ConfigFile() != "" {
		t.Errorf("ConfigFile() = %q, want empty", cfg.ConfigFile())
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	isolate(t)

	t.Setenv("STIPPLE_VERBOSE", "yes")
	t.Setenv("STIPPLE_SERVER_PORT", "8081")
	t.Setenv("STIPPLE_WATCH_POLICY", "reject")
	t.Setenv("STIPPLE_WATCH_DEBOUNCE", "250ms")
	t.Setenv("STIPPLE_SASS_LOAD_PATHS", "vendor,node_modules")
	t.Setenv("STIPPLE_CSS_PREFIX", "no")

	cfg, err := Load(&LoadOptions{
		ProjectDir:        t.TempDir(),
		SkipUserConfig:    true,
		SkipProjectConfig: true,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Verbose {
		t.Error("Verbose should be true from STIPPLE_VERBOSE")
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("Server.Port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Watch.Policy != "reject" {
		t.Errorf("Watch.Policy = %q, want reject", cfg.Watch.Policy)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Watch.Debounce = %s, want 250ms", cfg.Watch.Debounce)
	}
	if strings.Join(cfg.Sass.LoadPaths, " ") != "vendor node_modules" {
		t.Errorf("Sass.LoadPaths = %q", cfg.Sass.LoadPaths)
	}
	if cfg.CSS.Prefix {
		t.Error("CSS.Prefix should be false from STIPPLE_CSS_PREFIX")
	}
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	isolate(t)
	t.Setenv("STIPPLE_SERVER_PORT", "eighty")

	_, err := Load(&LoadOptions{
		ProjectDir:        t.TempDir(),
		SkipUserConfig:    true,
		SkipProjectConfig: true,
	})
	if err == nil || !strings.Contains(err.Error(), "STIPPLE_SERVER_PORT") {
		t.Fatalf("Load() error = %v, want one naming STIPPLE_SERVER_PORT", err)
	}
}

func TestLoad_ProjectConfig(t *testing.T) {
	isolate(t)

	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "stipple.yaml"), `
layout: inplace
server:
  port: 4000
  open: false
sprite:
  minify: true
`)

	cfg, err := Load(&LoadOptions{
		ProjectDir:     tmpDir,
		SkipUserConfig: true,
		SkipEnv:        true,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Layout != LayoutInPlace {
		t.Errorf("Layout = %q, want %q", cfg.Layout, LayoutInPlace)
	}
	if cfg.Server.Port != 4000 || cfg.Server.Open {
		t.Errorf("Server = %+v, want port 4000 without open", cfg.Server)
	}
	if cfg.Server.Host != DefaultServerHost {
		t.Errorf("Server.Host = %q, want default %q", cfg.Server.Host, DefaultServerHost)
	}
	if !cfg.Sprite.Minify {
		t.Error("Sprite.Minify should be true from project config")
	}
	if cfg.ConfigFile() != filepath.Join(tmpDir, "stipple.yaml") {
		t.Errorf("ConfigFile() = %q", cfg.ConfigFile())
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	userDir := os.Getenv("XDG_CONFIG_HOME")
	writeFile(t, filepath.Join(userDir, AppName, "config.yaml"), `
server:
  host: 0.0.0.0
  port: 5000
watch:
  debounce: 1s
`)

	projectDir := t.TempDir()
	writeFile(t, filepath.Join(projectDir, "stipple.yaml"), `
server:
  port: 6000
`)
	writeFile(t, filepath.Join(projectDir, ".env"), "STIPPLE_WATCH_DEBOUNCE=2s\nSTIPPLE_DEPLOY_BRANCH=from-dotenv\n")

	// The real environment wins over .env.
	t.Setenv("STIPPLE_DEPLOY_BRANCH", "from-env")
	// Registered so the variable .env sets is removed after the test.
	t.Setenv("STIPPLE_WATCH_DEBOUNCE", "")
	os.Unsetenv("STIPPLE_WATCH_DEBOUNCE")

	cfg, err := Load(&LoadOptions{ProjectDir: projectDir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want user config value", cfg.Server.Host)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want project value 6000", cfg.Server.Port)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Watch.Debounce = %s, want .env value 2s", cfg.Watch.Debounce)
	}
	if cfg.Deploy.Branch != "from-env" {
		t.Errorf("Deploy.Branch = %q, want environment value", cfg.Deploy.Branch)
	}
}

func TestLoad_InvalidProjectConfig(t *testing.T) {
	isolate(t)

	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "stipple.yaml"), "layout: sideways\nwatch:\n  policy: later\n")

	_, err := Load(&LoadOptions{ProjectDir: tmpDir, SkipUserConfig: true, SkipEnv: true})
	if err == nil {
		t.Fatal("Load() should fail for an invalid layout and policy")
	}
	for _, field := range []string{"layout", "watch.policy"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q should mention %s", err, field)
		}
	}
}

func TestLoad_WarningsWritten(t *testing.T) {
	isolate(t)
	t.Setenv("STIPPLE_SERVER_PORT", "80")

	var stderr bytes.Buffer
	_, err := Load(&LoadOptions{
		ProjectDir:        t.TempDir(),
		Stderr:            &stderr,
		SkipUserConfig:    true,
		SkipProjectConfig: true,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !strings.Contains(stderr.String(), "privileged") {
		t.Errorf("stderr = %q, want a privileged port warning", stderr.String())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
		wantWarn  bool
	}{
		{"defaults", func(*Config) {}, "", false},
		{"inplace layout", func(c *Config) { c.Layout = LayoutInPlace }, "", false},
		{"bad layout", func(c *Config) { c.Layout = "dist" }, "layout", false},
		{"empty sass binary", func(c *Config) { c.Sass.Binary = " " }, "sass.binary", false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port", false},
		{"privileged port", func(c *Config) { c.Server.Port = 443 }, "", true},
		{"random port", func(c *Config) { c.Server.Port = 0 }, "", false},
		{"bad policy", func(c *Config) { c.Watch.Policy = "queue" }, "watch.policy", false},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce", false},
		{"bad branch", func(c *Config) { c.Deploy.Branch = "gh..pages" }, "deploy.branch", false},
		{"empty branch", func(c *Config) { c.Deploy.Branch = "" }, "deploy.branch", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			result := cfg.Validate()

			if tt.wantError == "" && result.HasErrors() {
				t.Errorf("unexpected errors: %s", result.ErrorMessage())
			}
			if tt.wantError != "" && !strings.Contains(result.ErrorMessage(), tt.wantError) {
				t.Errorf("errors %q should mention %s", result.ErrorMessage(), tt.wantError)
			}
			if result.HasWarnings() != tt.wantWarn {
				t.Errorf("HasWarnings() = %v, want %v", result.HasWarnings(), tt.wantWarn)
			}
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	path, err := WriteDefaultConfig(dir)
	if err != nil {
		t.Fatalf("WriteDefaultConfig() error = %v", err)
	}
	if path != filepath.Join(dir, "stipple.yaml") {
		t.Errorf("path = %q", path)
	}

	// The written file must load back to the defaults.
	cfg, err := Load(&LoadOptions{ProjectDir: dir, SkipUserConfig: true, SkipEnv: true})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := DefaultConfig()
	if cfg.Server != want.Server || cfg.Watch != want.Watch || cfg.CSS != want.CSS {
		t.Errorf("loaded %+v, want defaults", cfg)
	}

	if _, err := WriteDefaultConfig(dir); err == nil {
		t.Error("WriteDefaultConfig() should refuse to overwrite")
	}
}

func TestDeployToken(t *testing.T) {
	t.Setenv("MY_TOKEN", "s3cret")

	if got := (DeployConfig{TokenEnv: "MY_TOKEN"}).Token(); got != "s3cret" {
		t.Errorf("Token() = %q, want s3cret", got)
	}
	if got := (DeployConfig{}).Token(); got != "" {
		t.Errorf("Token() = %q, want empty", got)
	}
}

func TestValidationResults_WriteWarnings(t *testing.T) {
	result := ValidationResults{
		Warnings: []ValidationWarning{
			{Field: "test", Message: "warning 1"},
			{Field: "test2", Message: "warning 2"},
		},
	}

	var buf bytes.Buffer
	result.WriteWarnings(&buf)

	if got := strings.Count(buf.String(), "config warning:"); got != 2 {
		t.Errorf("WriteWarnings wrote %d warnings, want 2", got)
	}
}
