// Package config loads stipple settings from defaults, the user config
// file, the project stipple.yaml, a project .env file and STIPPLE_*
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/yaklabco/stipple/internal/fsops"
)

// AppName names stipple's directories below the XDG homes.
const AppName = "stipple"

// ConfigFileName is the user configuration file, without extension.
const ConfigFileName = "config"

// ProjectConfigFileName is the project configuration file, without extension.
const ProjectConfigFileName = "stipple"

const publishCacheName = "publish"

// XDGPaths holds the config and cache homes stipple resolved for this user.
type XDGPaths struct {
	ConfigHome string
	CacheHome  string
}

// ResolveXDGPaths honours XDG_CONFIG_HOME and XDG_CACHE_HOME and otherwise
// falls back to the platform's usual locations.
func ResolveXDGPaths() XDGPaths {
	return XDGPaths{
		ConfigHome: xdgHome("XDG_CONFIG_HOME", configFallback),
		CacheHome:  xdgHome("XDG_CACHE_HOME", cacheFallback),
	}
}

// ConfigDir is stipple's directory under the config home.
func (p XDGPaths) ConfigDir() string {
	return filepath.Join(p.ConfigHome, AppName)
}

// CacheDir is stipple's directory under the cache home.
func (p XDGPaths) CacheDir() string {
	return filepath.Join(p.CacheHome, AppName)
}

// ConfigFilePath is the user config.yaml.
func (p XDGPaths) ConfigFilePath() string {
	return filepath.Join(p.ConfigDir(), ConfigFileName+".yaml")
}

// PublishCacheDir is the deploy working clone for projectDir. Every
// project gets its own clone, keyed by the hash of its absolute path.
func (p XDGPaths) PublishCacheDir(projectDir string) string {
	if abs, err := filepath.Abs(projectDir); err == nil {
		projectDir = abs
	}
	return filepath.Join(p.CacheDir(), publishCacheName, fsops.HashString([]byte(projectDir)))
}

func xdgHome(envVar string, fallback func(goos, home string) string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return dir
	}
	return fallback(runtime.GOOS, userHomeDir())
}

func configFallback(goos, home string) string {
	if goos == "windows" {
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir
		}
		return filepath.Join(home, "AppData", "Roaming")
	}
	// ~/.config on macOS too, like most command line tools.
	return filepath.Join(home, ".config")
}

func cacheFallback(goos, home string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Caches")
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "cache")
		}
		return filepath.Join(home, "AppData", "Local", "cache")
	default:
		return filepath.Join(home, ".cache")
	}
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return ""
}
