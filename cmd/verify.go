package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/runner"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/config"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/deploy"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/verifier"
)

var verifyConfigFlags = map[string]string{
	"deploy-script":  config.KeyDeployScript,
	"health-timeout": config.KeyHealthTimeout,
}

var verifyCmd = &cobra.Command{
	Use:   "verify [directory]",
	Short: "Deploy a challenge and wait for its health check",
	Long: `The verify command deploys the challenge in the given directory (default: current
directory), polls the health URL from its docker-compose.yml and tears it down again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		cfg, err := loadConfig(changedFlags(cmd, verifyConfigFlags))
		if err != nil {
			return err
		}
		if err := deploy.CheckDockerInstalled(); err != nil {
			return err
		}

		v := verifier.New(logger.Get(), deploy.NewScriptDeployer(&runner.DefaultCommandRunner{}, cfg.DeployScript))
		outcome := v.Verify(ctx, dir, cfg.HealthTimeout)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", dir, outcome.Status, outcome.Duration.Round(time.Millisecond))
		if !outcome.Healthy() {
			return outcome.Err
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().String("deploy-script", "", "Deployment script run inside the challenge (default \""+deploy.DefaultScript+"\")")
	verifyCmd.Flags().String("health-timeout", "", "How long to wait for the health check (e.g. 60s)")
}
