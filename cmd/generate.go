package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/ai"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/challenge"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/runner"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/config"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/deploy"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/metrics"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/pipeline"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/prompts"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/verifier"
)

type generateOptions struct {
	directory    string
	output       string
	variants     int
	retries      int
	parallel     int
	skipBaseline bool
	snapshot     bool
	metricsFile  string
	reportDir    string
}

var genOpts generateOptions

// flag name -> config key, for flags that override the configuration
var generateConfigFlags = map[string]string{
	"provider":       config.KeyProvider,
	"model":          config.KeyModel,
	"styles":         config.KeyStylesFile,
	"themes":         config.KeyThemesFile,
	"deploy-script":  config.KeyDeployScript,
	"health-timeout": config.KeyHealthTimeout,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate new frontends for every web challenge under a directory",
	Long: `The generate command finds every challenge directory whose name contains "web",
checks that it deploys, copies it into <output>/<challenge>-versions and asks the LLM
for a new frontend for each copy, repairing it until its health check passes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(changedFlags(cmd, generateConfigFlags))
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := deploy.CheckDockerInstalled(); err != nil {
			return err
		}

		llm, err := ai.NewClient(ctx, cfg.ClientOptions())
		if err != nil {
			return fmt.Errorf("error initializing LLM client: %w", err)
		}
		deployer := deploy.NewScriptDeployer(&runner.DefaultCommandRunner{}, cfg.DeployScript)

		return runGenerate(ctx, cmd.OutOrStdout(), genOpts, cfg, llm, deployer)
	},
}

// runGenerate processes every challenge under opts.directory and prints the
// summary to out.
func runGenerate(ctx context.Context, out io.Writer, opts generateOptions, cfg *config.Config, llm ai.LLMClient, deployer deploy.Deployer) error {
	runID := uuid.NewString()
	started := time.Now()
	log := logger.With().Str("run_id", runID).Logger()

	if opts.output == "" {
		opts.output = opts.directory
	}
	output, err := filepath.Abs(opts.output)
	if err != nil {
		return fmt.Errorf("resolving output directory: %w", err)
	}

	challenges, err := challenge.Discover(opts.directory)
	if err != nil {
		return err
	}
	if len(challenges) == 0 {
		log.Warn().Str("directory", opts.directory).Msg("No challenge directories found")
		return nil
	}
	log.Info().Int("challenges", len(challenges)).Int("variants", opts.variants).Int("retries", opts.retries).Msg("Starting run")

	styles, err := prompts.LoadWordList(cfg.StylesFile, prompts.DefaultStyles)
	if err != nil {
		return err
	}
	themes, err := prompts.LoadWordList(cfg.ThemesFile, prompts.DefaultThemes)
	if err != nil {
		return err
	}

	tracking := ai.NewTrackingClient(llm)
	collector := metrics.NewCollector(log, metrics.DefaultNamespace)
	v := verifier.New(log, deployer)
	loop := pipeline.NewRunner(log, tracking, v, prompts.NewBuilder(styles, themes, started.UnixNano()), collector, pipeline.RunnerOptions{
		MaxRetries:    opts.retries,
		HealthTimeout: cfg.HealthTimeout,
		SnapshotDir:   snapshotDir(opts, output),
	})
	processor, err := challenge.NewProcessor(log, v, loop, collector, challenge.Options{
		Output:        output,
		Variants:      opts.variants,
		Parallel:      opts.parallel,
		HealthTimeout: cfg.HealthTimeout,
		SkipBaseline:  opts.skipBaseline,
	})
	if err != nil {
		return err
	}

	results := processor.ProcessAll(ctx, challenges)
	fmt.Fprintln(out, renderSummary(results, tracking.Usage()))

	if opts.reportDir != "" {
		var variants []pipeline.Result
		for _, r := range results {
			variants = append(variants, r.Variants...)
		}
		if err := pipeline.WriteReport(pipeline.NewReport(runID, started, variants), opts.reportDir); err != nil {
			return err
		}
		log.Info().Str("dir", opts.reportDir).Msg("Run report written")
	}
	if err := collector.WriteToTextfile(opts.metricsFile); err != nil {
		return err
	}

	log.Info().Dur("elapsed", time.Since(started)).Int("llm_calls", tracking.Calls()).Msg("Run finished")
	return ctx.Err()
}

// snapshotDir keeps snapshots next to the report, or in the output root, and
// never inside a variant.
func snapshotDir(opts generateOptions, output string) string {
	if !opts.snapshot {
		return ""
	}
	if opts.reportDir != "" {
		return filepath.Join(opts.reportDir, pipeline.SnapshotDirectory)
	}
	return filepath.Join(output, pipeline.SnapshotDirectory)
}

// changedFlags returns the values of the flags the user set, keyed by their
// configuration key.
func changedFlags(cmd *cobra.Command, keys map[string]string) map[string]string {
	values := map[string]string{}
	for name, key := range keys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			values[key] = f.Value.String()
		}
	}
	return values
}

func init() {
	generateCmd.Flags().StringVarP(&genOpts.directory, "directory", "d", ".", "Directory holding the challenges")
	generateCmd.Flags().IntVarP(&genOpts.variants, "number", "n", 1, "Number of versions to generate per challenge")
	generateCmd.Flags().IntVarP(&genOpts.retries, "retries", "r", 0, "Repair attempts per version after a failed deployment")
	generateCmd.Flags().StringVarP(&genOpts.output, "output", "o", "", "Where the <challenge>-versions directories are created (default: --directory)")
	generateCmd.Flags().IntVar(&genOpts.parallel, "parallel", 1, "Challenges processed at the same time")
	generateCmd.Flags().BoolVar(&genOpts.skipBaseline, "skip-baseline", false, "Do not deploy the original challenge before generating")
	generateCmd.Flags().BoolVar(&genOpts.snapshot, "snapshot", false, "Write the reply and failure of every failed cycle under <report-dir or output>/.forge-snapshots")
	generateCmd.Flags().StringVar(&genOpts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	generateCmd.Flags().StringVar(&genOpts.reportDir, "report-dir", "", "Write run_report.json and report.md into this directory")

	generateCmd.Flags().String("provider", "", "LLM provider: gemini or azure")
	generateCmd.Flags().String("model", "", "Model name (Gemini model or Azure deployment)")
	generateCmd.Flags().String("styles", "", "File with one style per line")
	generateCmd.Flags().String("themes", "", "File with one theme per line")
	generateCmd.Flags().String("deploy-script", "", "Deployment script run inside each challenge (default \""+deploy.DefaultScript+"\")")
	generateCmd.Flags().String("health-timeout", "", "How long to wait for the health check (e.g. 60s)")
}
