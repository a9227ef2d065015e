// Package commands implements the CLI commands for pagesense.
package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pranavnbapat/pagesense/internal/config"
	"github.com/pranavnbapat/pagesense/internal/logger"
	"github.com/pranavnbapat/pagesense/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "pagesense",
	Short:   "Fetch web pages and PDFs and extract their readable text",
	Version: version.String(),
	Long: `Pagesense fetches a URL and returns the page's readable text with
navigation, scripts, cookie banners, and other boilerplate stripped.
Pages that refuse plain requests or render through JavaScript are
retried with browser-like headers and, as a last resort, a headless
browser. PDF responses are routed through a text extractor.

Examples:
  # Extract one page to stdout
  pagesense extract -u "https://example.com/article"

  # Multiple URLs, JSONL output to a file
  pagesense extract -u "https://a.example" -u "https://b.example" \
      --format jsonl -o results.jsonl

  # Run the HTTP service
  pagesense serve --addr :8080`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetVersionTemplate(version.Full() + "\n")

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.pagesense.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "log in JSON format")

	_ = viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("log.quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".pagesense")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PAGESENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig reads the merged configuration and initializes logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, err
	}

	logger.Init(logger.Options{
		Debug: cfg.Log.Debug,
		Quiet: cfg.Log.Quiet,
		JSON:  cfg.Log.JSON,
	})
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
