package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/config"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

var testConfigFlags = map[string]string{
	"provider": config.KeyProvider,
	"model":    config.KeyModel,
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the LLM connection",
	Long:  `The test command sends a short prompt with the configured provider and prints the response.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(changedFlags(cmd, testConfigFlags))
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		c, err := ai.NewClient(ctx, cfg.ClientOptions())
		if err != nil {
			return fmt.Errorf("error initializing LLM client: %w", err)
		}
		if err := ai.TestConnection(ctx, c); err != nil {
			if isLLMConnectionError(err) {
				printLLMConnectionHelp(cfg.Provider)
			}
			return fmt.Errorf("error testing LLM connection: %w", err)
		}
		return nil
	},
}

// isLLMConnectionError checks if the error comes from the model call itself
func isLLMConnectionError(err error) bool {
	if err == nil {
		return false
	}
	return errors.HasCode(err, errors.CodeNetworkError)
}

// printLLMConnectionHelp displays guidance for a failed connection test
func printLLMConnectionHelp(provider string) {
	logger.Error("Troubleshooting the LLM connection:")
	switch provider {
	case ai.ProviderAzure:
		logger.Errorf("   • Check %s points to your Azure OpenAI resource", config.KeyAzureEndpoint)
		logger.Errorf("   • The deployment in %s may have been deleted or renamed", config.KeyAzureDeploymentID)
		logger.Errorf("   • %s may be expired or belong to another resource", config.KeyAzureKey)
	default:
		logger.Errorf("   • Check %s is a valid Gemini API key", config.KeyGeminiAPIKey)
		logger.Errorf("   • The model in %s may not be available to your key", config.KeyModel)
	}
	logger.Error("   • Network connectivity issues")
}

func init() {
	testCmd.Flags().String("provider", "", "LLM provider: gemini or azure")
	testCmd.Flags().String("model", "", "Model name (Gemini model or Azure deployment)")
}
