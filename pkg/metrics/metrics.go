// Package metrics provides Prometheus metrics for a forge run. A nil
// *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
)

const DefaultNamespace = "forge"

// Collector collects run metrics on its own registry.
type Collector struct {
	logger   zerolog.Logger
	registry *prometheus.Registry

	variants       *prometheus.CounterVec
	challenges     *prometheus.CounterVec
	repairAttempts prometheus.Counter
	tokens         *prometheus.CounterVec
	verification   *prometheus.HistogramVec
}

func NewCollector(logger zerolog.Logger, namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		logger:   logger.With().Str("component", "metrics_collector").Logger(),
		registry: prometheus.NewRegistry(),
		variants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "variants_total",
				Help:      "Variants processed, by final status",
			},
			[]string{"status"},
		),
		challenges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "challenges_total",
				Help:      "Challenges processed, by final status",
			},
			[]string{"status"},
		),
		repairAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repair_attempts_total",
				Help:      "Repair prompts sent to the model",
			},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Tokens consumed by model calls",
			},
			[]string{"kind"},
		),
		verification: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "verification_seconds",
				Help:      "Duration of deploy, health check and teardown",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
	}

	c.registry.MustRegister(c.variants, c.challenges, c.repairAttempts, c.tokens, c.verification)
	c.logger.Debug().Str("namespace", namespace).Msg("Metrics collector initialized")
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) RecordVariant(status string) {
	if c == nil {
		return
	}
	c.variants.WithLabelValues(status).Inc()
}

func (c *Collector) RecordChallenge(status string) {
	if c == nil {
		return
	}
	c.challenges.WithLabelValues(status).Inc()
}

func (c *Collector) RecordRepairAttempt() {
	if c == nil {
		return
	}
	c.repairAttempts.Inc()
}

func (c *Collector) RecordTokens(prompt, completion int) {
	if c == nil {
		return
	}
	c.tokens.WithLabelValues("prompt").Add(float64(prompt))
	c.tokens.WithLabelValues("completion").Add(float64(completion))
}

func (c *Collector) ObserveVerification(status string, d time.Duration) {
	if c == nil {
		return
	}
	c.verification.WithLabelValues(status).Observe(d.Seconds())
}

// WriteToTextfile writes the text exposition of every metric to path, for
// the node exporter textfile collector.
func (c *Collector) WriteToTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.New(errors.CodeIoError, "metrics", "writing metrics to "+path, err)
	}
	c.logger.Info().Str("path", path).Msg("Metrics written")
	return nil
}
