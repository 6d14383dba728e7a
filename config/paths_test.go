package config

import (
	"path/filepath"
	"testing"
)

func TestResolveXDGPaths_WithXDGEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg/config")
	t.Setenv("XDG_CACHE_HOME", "/custom/xdg/cache")

	got := ResolveXDGPaths()
	if got.ConfigHome != "/custom/xdg/config" {
		t.Errorf("ConfigHome = %q, want %q", got.ConfigHome, "/custom/xdg/config")
	}
	if got.CacheHome != "/custom/xdg/cache" {
		t.Errorf("CacheHome = %q, want %q", got.CacheHome, "/custom/xdg/cache")
	}
}

func TestPlatformFallbacks(t *testing.T) {
	t.Setenv("APPDATA", "")
	t.Setenv("LOCALAPPDATA", "")

	tests := []struct {
		name string
		fn   func(goos, home string) string
		goos string
		want string
	}{
		{"linux config", configFallback, "linux", "/home/u/.config"},
		{"darwin config", configFallback, "darwin", "/home/u/.config"},
		{"windows config", configFallback, "windows", "/home/u/AppData/Roaming"},
		{"linux cache", cacheFallback, "linux", "/home/u/.cache"},
		{"darwin cache", cacheFallback, "darwin", "/home/u/Library/Caches"},
		{"windows cache", cacheFallback, "windows", "/home/u/AppData/Local/cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filepath.ToSlash(tt.fn(tt.goos, "/home/u")); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestXDGPaths_Methods(t *testing.T) {
	paths := XDGPaths{
		ConfigHome: "/config",
		CacheHome:  "/cache",
	}

	tests := []struct {
		name     string
		method   func() string
		expected string
	}{
		{"ConfigDir", paths.ConfigDir, "/config/stipple"},
		{"CacheDir", paths.CacheDir, "/cache/stipple"},
		{"ConfigFilePath", paths.ConfigFilePath, "/config/stipple/config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filepath.ToSlash(tt.method()); got != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestXDGPaths_PublishCacheDir(t *testing.T) {
	paths := XDGPaths{CacheHome: "/cache"}

	a := paths.PublishCacheDir("/work/site-a")
	b := paths.PublishCacheDir("/work/site-b")

	if a == b {
		t.Errorf("PublishCacheDir should differ per project, both %q", a)
	}
	if filepath.Dir(a) != filepath.Join("/cache", "stipple", "publish") {
		t.Errorf("PublishCacheDir(%q) = %q, want it under the publish cache", "/work/site-a", a)
	}
	if again := paths.PublishCacheDir("/work/site-a"); again != a {
		t.Errorf("PublishCacheDir should be stable, got %q then %q", a, again)
	}
}
