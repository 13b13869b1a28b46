// Package cmd provides the command-line interface for pagebuilder.
//
// Configuration is read from, in order of precedence:
//
//  1. Command-line flags (--config, --port, etc.)
//  2. The PAGEBUILDER_CONFIG_FILE environment variable, naming a config file
//  3. Individual environment variables (PAGEBUILDER_SERVER_PORT, ...)
//  4. .pagebuilder.yml in the current directory
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/pagebuilder/internal/catalog"
	"github.com/conneroisu/pagebuilder/internal/config"
	"github.com/conneroisu/pagebuilder/internal/logging"
)

// ConfigFileEnv names the environment variable holding a config file path.
const ConfigFileEnv = config.EnvPrefix + "_CONFIG_FILE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pagebuilder",
	Short: "A drag-and-drop single page website builder",
	Long: `pagebuilder composes single page websites from a catalog of section
templates (header, hero, content, footer). Sections can be reordered by
drag and drop in the live preview, edited through the property editor and
exported to or imported from a JSON design file.

Quick Start:
  pagebuilder serve                        Start the live preview server
  pagebuilder templates                    List the section templates
  pagebuilder compose header hero footer   Build a design file from templates
  pagebuilder validate design.json         Check a design file

Command Aliases:
  serve (s), templates (t, ls), compose (c)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}

	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .pagebuilder.yml, can also use "+ConfigFileEnv+" env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(ConfigFileEnv); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pagebuilder")
	}

	config.SetDefaults()
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// A missing or unreadable file leaves defaults and environment in place.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads configuration and builds the logger it describes. The
// returned cleanup closes the log file when log.dir is set.
func loadConfig() (*config.Config, logging.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	lc := cfg.LoggerConfig()
	console := logging.NewLogger(lc)
	if cfg.Log.Dir == "" {
		return cfg, console, func() {}, nil
	}

	fileLogger, err := logging.NewFileLogger(lc, cfg.Log.Dir)
	if err != nil {
		console.Warn(context.Background(), err, "File logging disabled", "dir", cfg.Log.Dir)
		return cfg, console, func() {}, nil
	}

	cleanup := func() { _ = fileLogger.Close() }

	return cfg, logging.NewMultiLogger(console, fileLogger), cleanup, nil
}

// loadCatalog returns the built-in catalog, extended by path when given.
func loadCatalog(path string, logger logging.Logger) (*catalog.Catalog, error) {
	c := catalog.New(logger)
	if path == "" {
		return c, nil
	}
	if err := c.Reload(path); err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}

	return c, nil
}
