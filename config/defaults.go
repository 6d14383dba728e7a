package config

import (
	"time"

	"github.com/spf13/viper"
)

// Layouts.
const (
	// LayoutBuild writes outputs to build/ and registers the full task set.
	LayoutBuild = "build"
	// LayoutInPlace writes outputs back into source/.
	LayoutInPlace = "inplace"
)

// Default configuration values.
const (
	DefaultLayout      = LayoutBuild
	DefaultVerbose     = false
	DefaultDebug       = false
	DefaultEnableColor = true

	DefaultSassBinary = "sass"

	DefaultCSSPrefix    = true
	DefaultCSSSourceMap = true

	DefaultSpriteMinify = false

	DefaultServerHost    = "localhost"
	DefaultServerPort    = 3000
	DefaultServerOpen    = true
	DefaultServerCORS    = true
	DefaultServerMetrics = false

	DefaultWatchPolicy   = "coalesce"
	DefaultWatchDebounce = 100 * time.Millisecond

	DefaultDeployRemote   = "origin"
	DefaultDeployBranch   = "gh-pages"
	DefaultDeployMessage  = "Update site"
	DefaultDeployTokenEnv = "GITHUB_TOKEN"
	DefaultDeployPush     = true
)

// setDefaults configures default values in the viper instance.
func setDefaults(viperInstance *viper.Viper) {
	viperInstance.SetDefault("layout", DefaultLayout)
	viperInstance.SetDefault("verbose", DefaultVerbose)
	viperInstance.SetDefault("debug", DefaultDebug)
	viperInstance.SetDefault("enable_color", DefaultEnableColor)

	viperInstance.SetDefault("sass.binary", DefaultSassBinary)
	viperInstance.SetDefault("sass.load_paths", []string{})

	viperInstance.SetDefault("css.prefix", DefaultCSSPrefix)
	viperInstance.SetDefault("css.source_map", DefaultCSSSourceMap)

	viperInstance.SetDefault("sprite.minify", DefaultSpriteMinify)

	viperInstance.SetDefault("server.host", DefaultServerHost)
	viperInstance.SetDefault("server.port", DefaultServerPort)
	viperInstance.SetDefault("server.open", DefaultServerOpen)
	viperInstance.SetDefault("server.cors", DefaultServerCORS)
	viperInstance.SetDefault("server.metrics", DefaultServerMetrics)

	viperInstance.SetDefault("watch.policy", DefaultWatchPolicy)
	viperInstance.SetDefault("watch.debounce", DefaultWatchDebounce)

	viperInstance.SetDefault("deploy.remote", DefaultDeployRemote)
	viperInstance.SetDefault("deploy.branch", DefaultDeployBranch)
	viperInstance.SetDefault("deploy.message", DefaultDeployMessage)
	viperInstance.SetDefault("deploy.cache_dir", "")
	viperInstance.SetDefault("deploy.token_env", DefaultDeployTokenEnv)
	viperInstance.SetDefault("deploy.push", DefaultDeployPush)
}
