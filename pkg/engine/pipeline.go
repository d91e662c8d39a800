package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/routegate/routegate/pkg/domain"
	"github.com/routegate/routegate/pkg/registry"
	"github.com/routegate/routegate/pkg/telemetry"
)

// Pipeline evaluates an ordered gate list against one navigation target.
//
// Evaluation is strictly sequential: gates run one at a time in list order, each
// awaited to completion before the next starts, and the first non-pass outcome
// stops the run (short-circuit AND). A Pipeline is not safe for concurrent Run
// calls; independent checks use independent Pipeline values, sharing a Registry
// only when their gate sets do not overlap mid-flight.
type Pipeline struct {
	registry *registry.Registry
	logger   *slog.Logger
	gates    []domain.GateRef
	target   *domain.Target
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates a pipeline resolving gates through reg. The gate list starts empty;
// an empty list is a designed immediate pass, not an error.
func New(reg *registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Configure replaces the held gate list. It is not additive; configuring twice
// keeps only the second list. The list must not be mutated while Run executes.
func (p *Pipeline) Configure(gates ...domain.GateRef) *Pipeline {
	p.gates = gates
	return p
}

// SetTarget stores the navigation target used by subsequent runs. A nil target
// marks runs as ad-hoc programmatic checks, which changes the shape of form
// denials (see domain.Deny).
func (p *Pipeline) SetTarget(target *domain.Target) *Pipeline {
	p.target = target
	return p
}

// Run evaluates the configured gates in order and returns the normalized result
// of the first denial, or nil when every gate passed. Nothing is cached between
// runs; each call re-evaluates the full list from the start.
//
// A gate name that cannot be resolved aborts the run with *domain.UnknownGateError.
// An error returned by a gate's Evaluate propagates unchanged; the engine never
// converts a failure into a pass or a denial.
func (p *Pipeline) Run(ctx context.Context) (*domain.Result, error) {
	if len(p.gates) == 0 {
		return nil, nil
	}

	tracer := otel.Tracer("routegate.pipeline")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.Int("pipeline.gates", len(p.gates)),
		attribute.Bool("request.navigation", p.target != nil),
	))
	defer span.End()

	for _, ref := range p.gates {
		gate, err := p.registry.Resolve(ref.Name)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		gateCtx, gateSpan := tracer.Start(ctx, "pipeline.gate",
			trace.WithAttributes(attribute.String("gate.name", ref.Name)),
		)

		started := time.Now()
		outcome, err := gate.Evaluate(gateCtx, domain.EvalContext{
			Target:  p.target,
			Options: ref.Options,
		})
		duration := time.Since(started)

		if err != nil {
			gateSpan.RecordError(err)
			gateSpan.SetStatus(codes.Error, err.Error())
			gateSpan.End()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("gate %q evaluation failed: %w", ref.Name, err)
		}

		gateSpan.SetAttributes(attribute.String("gate.outcome", string(outcome.Kind)))
		gateSpan.End()

		telemetry.RecordGateMetrics(gateCtx, telemetry.GateMetrics{
			Gate:       ref.Name,
			Outcome:    outcome.Kind,
			Navigation: p.target != nil,
			Duration:   duration,
		})

		if outcome.IsPass() {
			continue
		}

		outcome = attachResume(outcome, p.target)
		p.logger.Debug("gate denied request",
			"gate", ref.Name,
			"outcome", outcome.Kind,
		)
		span.SetAttributes(
			attribute.String("pipeline.denied_by", ref.Name),
			attribute.String("pipeline.outcome", string(outcome.Kind)),
		)
		return &domain.Result{Gate: ref.Name, Outcome: outcome}, nil
	}

	return nil, nil
}

// attachResume copies the original destination onto a redirect denial so
// navigation can resume after remediation. Redirects that opted out, outcomes
// that are not redirects, and targets without a resolvable full path pass
// through unchanged. The redirect's query map is cloned, never mutated in
// place, because the outcome may be shared by a cached gate.
func attachResume(outcome domain.Outcome, target *domain.Target) domain.Outcome {
	if outcome.Kind != domain.OutcomeRedirect || outcome.Redirect == nil {
		return outcome
	}
	if outcome.Redirect.DisableResume || target == nil || target.FullPath == "" {
		return outcome
	}

	redirect := *outcome.Redirect
	query := make(map[string]string, len(redirect.Query)+1)
	for k, v := range redirect.Query {
		query[k] = v
	}
	query[domain.ResumeParam] = target.FullPath
	redirect.Query = query
	outcome.Redirect = &redirect
	return outcome
}
