package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"xscraper/pkg/config"
	"xscraper/pkg/logger"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	logLevel   string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xscraper",
	Short: "Session-authenticated content acquisition under strict pacing limits",
	Long: `xscraper crawls dynamically-rendered social pages using delegated session
credentials, deduplicates what it finds, and paces every request to stay
under anti-bot radar.

Targets:
  - content search results (keyword)
  - a single profile page
  - people search results (niche)

Credentials are sealed with AES-GCM and stored in the system keychain;
plaintext cookie values never touch disk or logs.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		return logger.Initialize(&cfg.Logging)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(browseCmd)
}
