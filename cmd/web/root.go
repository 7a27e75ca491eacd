package main

import (
	"github.com/spf13/cobra"

	"finitefield.org/showcase-web/internal/config"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "showcase",
	Short: "Server-rendered showcase of browsable JSON collections",
	Long: `Showcase serves a member directory, aircraft and flight listings, weather
reports and a flight distance planner. Every collection is a JSON file or URL
described in the catalog, rendered as cards with a shared detail overlay.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "showcase.yaml", "YAML config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file path")
}

func loadConfig() (config.Config, error) {
	return config.Load(config.WithConfigFile(cfgFile), config.WithEnvFile(envFile))
}
