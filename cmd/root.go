// Package cmd provides the command-line interface for scormkit.
//
// Configuration sources, in precedence order:
//  1. Command-line flags (--config, --port, etc.)
//  2. SCORMKIT_CONFIG_FILE environment variable (custom config file path)
//  3. Individual environment variables (SCORMKIT_SERVER_PORT, etc.)
//  4. Configuration file (.scormkit.yml in the current directory)
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scormkit",
	Short: "Extraction and launch-resolution engine for SCORM packages",
	Long: `scormkit extracts SCORM content packages, resolves their launchable
items, and serves the extracted content over HTTP.

Quick Start:
  scormkit extract course.zip my-course    Process a package once and print a summary
  scormkit inspect course.zip my-course    Process and dump the full result with diagnostics
  scormkit serve                           Start the HTTP API and content server`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .scormkit.yml, can also use SCORMKIT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes viper from flags, environment, and the config file.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SCORMKIT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".scormkit")
	}

	viper.SetEnvPrefix("SCORMKIT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults cover everything.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
