package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yaklabco/stipple/internal/env"
)

// Config holds all stipple configuration values.
type Config struct {
	// Layout is "build" (outputs in build/) or "inplace" (outputs in source/).
	Layout string `mapstructure:"layout"`

	// Verbose echoes external commands.
	Verbose bool `mapstructure:"verbose"`

	// Debug enables debug messages.
	Debug bool `mapstructure:"debug"`

	// EnableColor enables colored output in terminal.
	EnableColor bool `mapstructure:"enable_color"`

	Sass   SassConfig   `mapstructure:"sass"`
	CSS    CSSConfig    `mapstructure:"css"`
	Sprite SpriteConfig `mapstructure:"sprite"`
	Server ServerConfig `mapstructure:"server"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Deploy DeployConfig `mapstructure:"deploy"`

	// configFile is the path to the config file that was loaded (if any).
	configFile string
}

// SassConfig configures the Sass compiler.
type SassConfig struct {
	// Binary is the dart-sass executable.
	Binary    string   `mapstructure:"binary"`
	LoadPaths []string `mapstructure:"load_paths"`
}

// CSSConfig configures stylesheet post-processing.
type CSSConfig struct {
	// Prefix adds vendor-prefixed declarations.
	Prefix bool `mapstructure:"prefix"`
	// SourceMap writes style.min.css.map next to the stylesheet.
	SourceMap bool `mapstructure:"source_map"`
}

// SpriteConfig configures the SVG sprite.
type SpriteConfig struct {
	Minify bool `mapstructure:"minify"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Open    bool   `mapstructure:"open"`
	CORS    bool   `mapstructure:"cors"`
	Metrics bool   `mapstructure:"metrics"`
}

// WatchConfig configures the watch loop.
type WatchConfig struct {
	// Policy is "coalesce" or "reject".
	Policy   string        `mapstructure:"policy"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// DeployConfig configures publishing to a git branch.
type DeployConfig struct {
	// Remote is a remote name of the project repository, or a URL.
	Remote  string `mapstructure:"remote"`
	Branch  string `mapstructure:"branch"`
	Message string `mapstructure:"message"`
	// CacheDir holds the working clone. Empty means the XDG cache.
	CacheDir string `mapstructure:"cache_dir"`
	// TokenEnv names the environment variable holding an access token.
	TokenEnv string `mapstructure:"token_env"`
	Push     bool   `mapstructure:"push"`
}

// Token returns the deploy access token, if any.
func (d DeployConfig) Token() string {
	if d.TokenEnv == "" {
		return ""
	}
	return os.Getenv(d.TokenEnv)
}

// ConfigFile returns the path to the configuration file that was loaded,
// or an empty string if no file was loaded.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ProjectDir is the directory to search for project-level config.
	// If empty, the current working directory is used.
	ProjectDir string

	// Stderr is where warnings are written.
	// If nil, os.Stderr is used.
	Stderr io.Writer

	// SkipProjectConfig skips loading stipple.yaml and .env.
	SkipProjectConfig bool

	// SkipUserConfig skips loading user-level configuration.
	SkipUserConfig bool

	// SkipEnv skips reading environment variables.
	SkipEnv bool
}

// Load reads configuration from all sources and returns a Config struct.
// Configuration is loaded in the following order (later sources override earlier):
//  1. Defaults
//  2. User config file (~/.config/stipple/config.yaml)
//  3. Project config file (./stipple.yaml)
//  4. Project .env file, which never replaces variables already set
//  5. Environment variables (STIPPLE_*)
//
// Command-line flags are applied on top by the caller.
// If opts is nil, default options are used.
func Load(opts *LoadOptions) (*Config, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	projectDir := opts.ProjectDir
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	viperInstance := viper.New()

	// Set defaults
	setDefaults(viperInstance)
	viperInstance.SetConfigType("yaml")

	var configFileUsed string

	// Load user config from XDG path (~/.config/stipple/config.yaml)
	if !opts.SkipUserConfig {
		paths := ResolveXDGPaths()
		viperInstance.SetConfigName(ConfigFileName)
		viperInstance.AddConfigPath(paths.ConfigDir())

		if err := viperInstance.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, fmt.Errorf("failed to read user config file: %w", err)
			}
		} else {
			configFileUsed = viperInstance.ConfigFileUsed()
		}
	}

	// Load project config (./stipple.yaml) - merges with/overrides user config
	if !opts.SkipProjectConfig {
		projectConfigPath := filepath.Join(projectDir, ProjectConfigFileName+".yaml")
		if _, err := os.Stat(projectConfigPath); err == nil {
			viperInstance.SetConfigFile(projectConfigPath)
			if err := viperInstance.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read project config file: %w", err)
			}
			configFileUsed = projectConfigPath
		}

		if err := loadDotEnv(projectDir); err != nil {
			return nil, err
		}
	}

	var result ValidationResults

	// Environment variables take precedence over config files.
	if !opts.SkipEnv {
		result.Errors = append(result.Errors, applyEnvironmentOverrides(viperInstance, env.Prefixed())...)
	}

	// Unmarshal into struct
	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Record which config file was used (project config takes precedence for display)
	cfg.configFile = configFileUsed

	if cfg.Deploy.CacheDir == "" {
		cfg.Deploy.CacheDir = ResolveXDGPaths().PublishCacheDir(projectDir)
	}

	// Expand ~ in cache_dir
	if strings.HasPrefix(cfg.Deploy.CacheDir, "~/") {
		home := userHomeDir()
		cfg.Deploy.CacheDir = filepath.Join(home, cfg.Deploy.CacheDir[2:])
	}

	// Validate configuration
	validation := cfg.Validate()
	result.Errors = append(result.Errors, validation.Errors...)
	result.Warnings = append(result.Warnings, validation.Warnings...)
	if result.HasWarnings() {
		result.WriteWarnings(opts.Stderr)
	}
	if result.HasErrors() {
		return nil, errors.New(result.ErrorMessage())
	}

	return &cfg, nil
}

// loadDotEnv reads projectDir/.env into the process environment. Variables
// that are already set keep their values.
func loadDotEnv(projectDir string) error {
	path := filepath.Join(projectDir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindInt
	kindDuration
	kindList
)

// envKeys lists the keys that STIPPLE_* variables may override. The
// variable name is the key upper-cased with dots replaced by underscores,
// so server.port is STIPPLE_SERVER_PORT.
//
//nolint:gochecknoglobals // lookup table
var envKeys = map[string]valueKind{
	"layout":           kindString,
	"verbose":          kindBool,
	"debug":            kindBool,
	"enable_color":     kindBool,
	"sass.binary":      kindString,
	"sass.load_paths":  kindList,
	"css.prefix":       kindBool,
	"css.source_map":   kindBool,
	"sprite.minify":    kindBool,
	"server.host":      kindString,
	"server.port":      kindInt,
	"server.open":      kindBool,
	"server.cors":      kindBool,
	"server.metrics":   kindBool,
	"watch.policy":     kindString,
	"watch.debounce":   kindDuration,
	"deploy.remote":    kindString,
	"deploy.branch":    kindString,
	"deploy.message":   kindString,
	"deploy.cache_dir": kindString,
	"deploy.token_env": kindString,
	"deploy.push":      kindBool,
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return env.Prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// applyEnvironmentOverrides sets every key that has a variable in vars,
// which is keyed the way env.Prefixed returns it.
func applyEnvironmentOverrides(viperInstance *viper.Viper, vars map[string]string) []ValidationError {
	var errs []ValidationError

	for key, kind := range envKeys {
		raw, ok := vars[strings.ReplaceAll(key, ".", "_")]
		if !ok {
			continue
		}

		var (
			value any
			err   error
		)
		switch kind {
		case kindBool:
			value, err = env.ParseBool(raw)
		case kindInt:
			value, err = strconv.Atoi(strings.TrimSpace(raw))
		case kindDuration:
			value, err = time.ParseDuration(strings.TrimSpace(raw))
		case kindList:
			value = splitList(raw)
		default:
			value = raw
		}
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   key,
				Message: fmt.Sprintf("invalid %s value %q: %v", EnvName(key), raw, err),
			})
			continue
		}
		viperInstance.Set(key, value)
	}

	return errs
}

// splitList splits a path-list style value on the OS list separator or commas.
func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Layout:      DefaultLayout,
		Verbose:     DefaultVerbose,
		Debug:       DefaultDebug,
		EnableColor: DefaultEnableColor,
		Sass:        SassConfig{Binary: DefaultSassBinary},
		CSS:         CSSConfig{Prefix: DefaultCSSPrefix, SourceMap: DefaultCSSSourceMap},
		Sprite:      SpriteConfig{Minify: DefaultSpriteMinify},
		Server: ServerConfig{
			Host:    DefaultServerHost,
			Port:    DefaultServerPort,
			Open:    DefaultServerOpen,
			CORS:    DefaultServerCORS,
			Metrics: DefaultServerMetrics,
		},
		Watch: WatchConfig{Policy: DefaultWatchPolicy, Debounce: DefaultWatchDebounce},
		Deploy: DeployConfig{
			Remote:   DefaultDeployRemote,
			Branch:   DefaultDeployBranch,
			Message:  DefaultDeployMessage,
			TokenEnv: DefaultDeployTokenEnv,
			Push:     DefaultDeployPush,
		},
	}
}

// WriteDefaultConfig writes a commented stipple.yaml into projectDir.
func WriteDefaultConfig(projectDir string) (string, error) {
	configPath := filepath.Join(projectDir, ProjectConfigFileName+".yaml")

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfigYAML()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}

// defaultConfigYAML returns the default configuration as YAML.
func defaultConfigYAML() string {
	return `# stipple configuration
# Every key can also be set with a STIPPLE_* environment variable,
# for example STIPPLE_SERVER_PORT=8080.

# "build" writes outputs to build/, "inplace" writes them into source/.
layout: build

# Echo external commands.
verbose: false

# Enable debug messages.
debug: false

# Enable colored output in terminal.
enable_color: true

sass:
  # dart-sass executable.
  binary: sass
  # Extra directories searched by @use and @import.
  load_paths: []

css:
  # Add vendor-prefixed declarations.
  prefix: true
  # Write css/style.min.css.map.
  source_map: true

sprite:
  # Minify img/sprite.svg.
  minify: false

server:
  host: localhost
  port: 3000
  # Open a browser when the dev server starts.
  open: true
  cors: true
  # Serve Prometheus metrics at /__stipple/metrics.
  metrics: false

watch:
  # "coalesce" queues one rerun for changes made while a task runs,
  # "reject" drops them.
  policy: coalesce
  debounce: 100ms

deploy:
  # Remote name of this repository, or a URL.
  remote: origin
  branch: gh-pages
  message: Update site
  # Working clone. Defaults to the user cache directory.
  # cache_dir: ~/.cache/stipple/publish
  # Environment variable holding an access token for https remotes.
  token_env: GITHUB_TOKEN
  push: true
`
}
