package challenge

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/metrics"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/pipeline"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/verifier"
)

// Status is the final state of a challenge.
type Status string

const (
	StatusProcessed      Status = "processed"
	StatusDone           Status = "done"
	StatusBaselineFailed Status = "baseline_failed"
	StatusFailed         Status = "failed"
)

// VariantRunner crafts one variant.
type VariantRunner interface {
	Run(ctx context.Context, v pipeline.Variant) pipeline.Result
}

type Options struct {
	// Output is where <challenge>-versions directories are created.
	Output        string
	Variants      int
	Parallel      int
	HealthTimeout time.Duration
	SkipBaseline  bool
}

func (o Options) Validate() error {
	if o.Variants <= 0 {
		return errors.New(errors.CodeConfigurationInvalid, domain, "number of versions should be greater than zero", nil)
	}
	if o.Output == "" {
		return errors.New(errors.CodeConfigurationInvalid, domain, "output directory is required", nil)
	}
	return nil
}

// Result reports one challenge and the variants it produced.
type Result struct {
	Challenge Challenge
	Status    Status
	Reason    string
	Variants  []pipeline.Result
}

type Processor struct {
	logger   zerolog.Logger
	verifier pipeline.Verifier
	runner   VariantRunner
	metrics  *metrics.Collector
	opts     Options
}

func NewProcessor(logger zerolog.Logger, v pipeline.Verifier, runner VariantRunner, collector *metrics.Collector, opts Options) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = verifier.DefaultTimeout
	}
	return &Processor{
		logger:   logger.With().Str("component", "challenge_processor").Logger(),
		verifier: v,
		runner:   runner,
		metrics:  collector,
		opts:     opts,
	}, nil
}

// ProcessAll runs up to Options.Parallel challenges at once. A failing
// challenge never stops the others; results keep the input order.
func (p *Processor) ProcessAll(ctx context.Context, challenges []Challenge) []Result {
	results := make([]Result, len(challenges))

	var g errgroup.Group
	g.SetLimit(p.opts.Parallel)
	for i, ch := range challenges {
		g.Go(func() error {
			results[i] = p.Process(ctx, ch)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Process checks the pristine challenge, prepares its variants and crafts
// them one after another.
func (p *Processor) Process(ctx context.Context, ch Challenge) Result {
	log := p.logger.With().Str("challenge", ch.Name).Logger()
	result := Result{Challenge: ch}

	if _, err := os.Stat(VersionsDir(p.opts.Output, ch.Name)); err == nil {
		log.Info().Msg("Challenge DONE")
		return p.finish(log, result, StatusDone, "versions directory already exists")
	}

	if !p.opts.SkipBaseline {
		log.Info().Msg("Checking the original challenge deploys")
		outcome := p.verifier.Verify(ctx, ch.Dir, p.opts.HealthTimeout)
		if !outcome.Healthy() {
			return p.finish(log, result, StatusBaselineFailed, "can't be deployed for checking: "+outcome.Reason)
		}
	}

	sources, err := FindSources(ch.Dir)
	if err != nil {
		return p.finish(log, result, StatusFailed, errors.MessageOf(err))
	}
	log.Debug().Str("dir", sources.Dir).Strs("files", sources.Files).Msg("Source files selected")

	extracted, err := ExtractPayload(sources)
	if err != nil {
		return p.finish(log, result, StatusFailed, errors.MessageOf(err))
	}

	dirs, err := PrepareVariants(ch, p.opts.Output, p.opts.Variants)
	if stderrors.Is(err, ErrAlreadyProcessed) {
		return p.finish(log, result, StatusDone, "versions directory already exists")
	}
	if err != nil {
		return p.finish(log, result, StatusFailed, errors.MessageOf(err))
	}
	log.Info().Int("variants", len(dirs)).Msg("Variants prepared")

	payload := extracted.Payload()
	for i, dir := range dirs {
		v := pipeline.Variant{
			Challenge:   ch.Name,
			Name:        VariantName(ch.Name, i+1),
			Dir:         dir,
			SandboxRoot: SandboxRoot(dir),
			Payload:     payload,
		}
		if ctx.Err() != nil {
			result.Variants = append(result.Variants, pipeline.Result{Variant: v, Status: pipeline.StatusSkipped, Reason: ctx.Err().Error()})
			continue
		}
		log.Info().Str("variant", v.Name).Msgf("Crafting version %d of %d", i+1, len(dirs))
		result.Variants = append(result.Variants, p.runner.Run(ctx, v))
	}

	return p.finish(log, result, StatusProcessed, "")
}

func (p *Processor) finish(log zerolog.Logger, result Result, status Status, reason string) Result {
	result.Status = status
	result.Reason = reason
	p.metrics.RecordChallenge(string(status))
	if status == StatusBaselineFailed || status == StatusFailed {
		log.Error().Str("status", string(status)).Str("reason", reason).Msg("Challenge not processed")
	}
	return result
}
