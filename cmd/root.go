package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/config"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

var (
	verbose    bool
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "frontend-forge",
	Short: "Generate and verify new frontends for web challenges",
	Long: `frontend-forge reads the backend handlers of each web challenge, asks an LLM
for a new frontend, deploys the result and repairs it until the health check passes.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(zerolog.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// loadConfig resolves the configuration for a command. flags maps
// environment keys to the values of flags the user actually set.
func loadConfig(flags map[string]string) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		EnvFile:    envFile,
		Flags:      flags,
	})
	if err != nil {
		return nil, err
	}
	cfg.PrintConfig()
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to the .env file (default \".env\" when present)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(testCmd)
}
