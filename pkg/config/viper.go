// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/spindle/internal/crawler"
	"github.com/JakeFAU/spindle/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. SPINDLE_CRAWL_THREADS.
const EnvPrefix = "SPINDLE"

// SetDefaults installs the default value of every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("crawl.seeds", []string{})
	v.SetDefault("crawl.include", []string{})
	v.SetDefault("crawl.exclude", []string{})
	v.SetDefault("crawl.content_types", crawler.DefaultContentTypes)
	v.SetDefault("crawl.threads", crawler.DefaultThreads)
	v.SetDefault("crawl.description_size", crawler.DefaultDescriptionSize)
	v.SetDefault("crawl.description_tags", []string{})
	v.SetDefault("crawl.fragment_by_anchor", false)
	v.SetDefault("crawl.https", true)
	v.SetDefault("crawl.user_agent", crawler.DefaultUserAgent)
	v.SetDefault("crawl.request_timeout", "0s")
	v.SetDefault("crawl.max_body_bytes", crawler.DefaultMaxBodyBytes)
	v.SetDefault("crawl.dry_run", false)

	v.SetDefault("index.destination", "")
	v.SetDefault("index.incremental", false)
	v.SetDefault("index.table", "documents")

	v.SetDefault("log.verbose", false)
	v.SetDefault("log.development", true)

	v.SetDefault("metrics.addr", "")
}

// InitConfig prepares v: a .env file in the working directory is loaded into
// the environment, defaults are set, SPINDLE_* variables are bound, and the
// config file is read. cfgFile overrides the search for spindle.yaml in ".",
// /etc/spindle/ and $HOME/.spindle. A missing config file is not an error.
func InitConfig(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil {
		logging.L.Debug("No .env file loaded", zap.Error(err))
	}

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("spindle")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/spindle/")
		v.AddConfigPath("$HOME/.spindle")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logging.L.Debug("Config file not found; using defaults, flags and environment variables.")
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	logging.L.Info("Using config file", zap.String("path", v.ConfigFileUsed()))
	return nil
}
