// Package verifier deploys a challenge directory, polls its health endpoint
// until it answers or the timeout passes, and always tears the deployment
// down again.
package verifier

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/compose"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/deploy"
)

const (
	DefaultTimeout         = 60 * time.Second
	DefaultPollInterval    = 3 * time.Second
	DefaultRequestTimeout  = 5 * time.Second
	DefaultTeardownTimeout = 2 * time.Minute

	domain = "verifier"
)

// Status is the terminal state of one verification.
type Status string

const (
	StatusHealthy           Status = "healthy"
	StatusHealthCheckFailed Status = "health_check_failed"
	StatusDeployFailed      Status = "deploy_failed"
	StatusConfigMissing     Status = "config_missing"
)

// Outcome reports a single verification. Err carries the structured error of
// every non-healthy status.
type Outcome struct {
	Status    Status
	Reason    string
	HealthURL string
	Duration  time.Duration
	Err       error
}

func (o Outcome) Healthy() bool {
	return o.Status == StatusHealthy
}

// Retryable reports whether regenerating the front end could change the result.
func (o Outcome) Retryable() bool {
	return !o.Healthy() && errors.IsRetryable(o.Err)
}

// Verifier runs deploy, poll and teardown for a directory.
type Verifier struct {
	logger          zerolog.Logger
	deployer        deploy.Deployer
	httpClient      *http.Client
	locks           *PortLocks
	pollInterval    time.Duration
	requestTimeout  time.Duration
	teardownTimeout time.Duration
}

type Option func(*Verifier)

func WithPollInterval(d time.Duration) Option {
	return func(v *Verifier) { v.pollInterval = d }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.requestTimeout = d }
}

func WithTeardownTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.teardownTimeout = d }
}

// WithPortLocks shares host-port locks between verifiers.
func WithPortLocks(l *PortLocks) Option {
	return func(v *Verifier) { v.locks = l }
}

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

// New creates a verifier. Redirects are reported as-is rather than followed,
// so any 3xx answer counts as healthy.
func New(logger zerolog.Logger, deployer deploy.Deployer, opts ...Option) *Verifier {
	v := &Verifier{
		logger:   logger.With().Str("component", "verifier").Logger(),
		deployer: deployer,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
				DisableKeepAlives: true,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		locks:           NewPortLocks(),
		pollInterval:    DefaultPollInterval,
		requestTimeout:  DefaultRequestTimeout,
		teardownTimeout: DefaultTeardownTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify deploys dir and waits up to timeout for its health endpoint. Once
// deployment has started, teardown runs on every return path, even when ctx
// is cancelled.
func (v *Verifier) Verify(ctx context.Context, dir string, timeout time.Duration) Outcome {
	start := time.Now()
	log := v.logger.With().Str("dir", dir).Logger()
	log.Debug().Str("state", "not_deployed").Msg("Verifying deployment")

	desc, err := compose.Load(dir)
	if err != nil {
		log.Debug().Str("state", "config_missing").Err(err).Msg("Deployment descriptor unusable")
		return finish(start, Outcome{Status: StatusConfigMissing, Reason: errors.MessageOf(err), Err: err})
	}
	healthURL := desc.HealthURL()
	log = log.With().Str("host_port", desc.HostPort).Str("health_url", healthURL).Logger()

	release, err := v.locks.Acquire(ctx, desc.HostPort)
	if err != nil {
		wrapped := errors.New(errors.CodeDeployFailed, domain,
			fmt.Sprintf("cancelled while waiting for host port %s", desc.HostPort), err)
		return finish(start, Outcome{Status: StatusDeployFailed, Reason: wrapped.Message, HealthURL: healthURL, Err: wrapped})
	}
	defer release()

	log.Debug().Str("state", "deploying").Msg("Deploying")
	defer v.teardown(ctx, log, dir)

	if err := v.deployer.Deploy(ctx, dir); err != nil {
		log.Debug().Str("state", "deploy_failed").Err(err).Msg("Deployment failed")
		return finish(start, Outcome{Status: StatusDeployFailed, Reason: errors.MessageOf(err), HealthURL: healthURL, Err: err})
	}

	log.Debug().Str("state", "polling").Dur("timeout", timeout).Msg("Polling health endpoint")
	if err := v.poll(ctx, healthURL, timeout); err != nil {
		log.Debug().Str("state", "timed_out").Err(err).Msg("Health check failed")
		return finish(start, Outcome{Status: StatusHealthCheckFailed, Reason: errors.MessageOf(err), HealthURL: healthURL, Err: err})
	}

	log.Debug().Str("state", "healthy").Msg("Health check passed")
	return finish(start, Outcome{Status: StatusHealthy, HealthURL: healthURL})
}

func (v *Verifier) poll(ctx context.Context, healthURL string, timeout time.Duration) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()

	for {
		if v.probe(pctx, healthURL) {
			return nil
		}
		select {
		case <-pctx.Done():
			if ctx.Err() != nil {
				return errors.New(errors.CodeHealthTimeout, domain, "health check cancelled", ctx.Err())
			}
			return errors.New(errors.CodeHealthTimeout, domain, fmt.Sprintf("Health check failed after %s", timeout), nil)
		case <-ticker.C:
		}
	}
}

func (v *Verifier) probe(ctx context.Context, healthURL string) bool {
	rctx, cancel := context.WithTimeout(ctx, v.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Debug().Err(err).Str("url", healthURL).Msg("Health probe failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	v.logger.Debug().Int("status", resp.StatusCode).Str("url", healthURL).Msg("Health probe answered")
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func (v *Verifier) teardown(ctx context.Context, log zerolog.Logger, dir string) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.teardownTimeout)
	defer cancel()
	if err := v.deployer.Teardown(tctx, dir); err != nil {
		log.Warn().Err(err).Msg("Teardown failed")
	}
}

func finish(start time.Time, o Outcome) Outcome {
	o.Duration = time.Since(start)
	return o
}
