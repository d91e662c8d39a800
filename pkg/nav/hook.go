// Package nav wires the gate pipeline into an HTTP navigation lifecycle.
//
// The Hook is middleware invoked before each request reaches the guarded
// handler. It implements the resume-after-remediation convention: a denial that
// redirects to a remediation form carries the original destination in the
// "redirect" query parameter, and a later request presenting that parameter is
// routed straight to the original destination with gate evaluation skipped once.
package nav

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/routegate/routegate/pkg/domain"
	"github.com/routegate/routegate/pkg/engine"
	"github.com/routegate/routegate/pkg/registry"
)

// RouteSource answers which gates guard a request path.
type RouteSource interface {
	GatesFor(path string) []domain.GateRef
}

// AtomicRoutes is a RouteSource that can be swapped atomically, letting config
// reloads replace the route table without restarting the hook.
type AtomicRoutes struct {
	current atomic.Pointer[RouteSource]
}

// Store replaces the active route source.
func (a *AtomicRoutes) Store(src RouteSource) {
	a.current.Store(&src)
}

// GatesFor delegates to the active route source; empty before the first Store.
func (a *AtomicRoutes) GatesFor(path string) []domain.GateRef {
	src := a.current.Load()
	if src == nil {
		return nil
	}
	return (*src).GatesFor(path)
}

// Hook runs the gate pipeline in front of an http.Handler.
type Hook struct {
	registry *registry.Registry
	routes   RouteSource
	logger   *slog.Logger
	metrics  *Metrics
}

// HookOption configures a Hook.
type HookOption func(*Hook)

// WithLogger sets the hook logger.
func WithLogger(logger *slog.Logger) HookOption {
	return func(h *Hook) { h.logger = logger }
}

// WithMetrics attaches HTTP metrics to the hook.
func WithMetrics(m *Metrics) HookOption {
	return func(h *Hook) { h.metrics = m }
}

// NewHook creates a navigation hook resolving gates through reg and route
// declarations through routes.
func NewHook(reg *registry.Registry, routes RouteSource, opts ...HookOption) *Hook {
	h := &Hook{
		registry: reg,
		routes:   routes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Middleware returns the handler that evaluates gates before next.
//
// Per request:
//
//  1. A request carrying the resume parameter that is not itself a remediation
//     redirect (its path is outside the remediation prefix) is rewritten to the
//     parameter's value and served directly; gates are skipped once for it.
//  2. Otherwise the route's declared gates run against the request target. A nil
//     result lets the request through; Cancel answers 403; Redirect answers 303
//     to the remediation target with the resume parameter attached.
func (h *Hook) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		started := time.Now()

		if resumed, ok := h.resumeTarget(r); ok {
			h.logger.Debug("resuming original destination",
				"request_id", requestID,
				"target", resumed.URL.RequestURI(),
			)
			h.observe("resume", started)
			next.ServeHTTP(w, resumed)
			return
		}

		target := &domain.Target{
			FullPath: r.URL.RequestURI(),
			Gates:    h.routes.GatesFor(r.URL.Path),
		}

		pipeline := engine.New(h.registry, engine.WithLogger(h.logger))
		pipeline.Configure(target.Gates...).SetTarget(target)

		result, err := pipeline.Run(r.Context())
		if err != nil {
			h.logger.Error("pipeline run failed",
				"request_id", requestID,
				"path", r.URL.Path,
				"error", err,
			)
			h.observe("error", started)
			writeError(w, http.StatusInternalServerError, "PIPELINE_FAILED", "access pipeline failed", requestID)
			return
		}

		if result == nil {
			h.observe("pass", started)
			next.ServeHTTP(w, r)
			return
		}

		h.logger.Info("navigation denied",
			"request_id", requestID,
			"path", r.URL.Path,
			"gate", result.Gate,
			"outcome", result.Outcome.Kind,
		)

		switch result.Outcome.Kind {
		case domain.OutcomeRedirect:
			h.observe("redirect", started)
			if h.metrics != nil {
				h.metrics.RecordDenial(result.Gate, string(result.Outcome.Kind))
			}
			http.Redirect(w, r, redirectURL(result.Outcome.Redirect), http.StatusSeeOther)
		default:
			h.observe("cancel", started)
			if h.metrics != nil {
				h.metrics.RecordDenial(result.Gate, string(result.Outcome.Kind))
			}
			writeError(w, http.StatusForbidden, "NAVIGATION_CANCELLED", "request denied by gate "+result.Gate, requestID)
		}
	})
}

// resumeTarget returns the request rewritten to the resume destination when the
// incoming navigation carries the resume marker and was not itself produced by a
// remediation redirect. Remediation pages keep the marker untouched so it
// survives until the form is completed.
func (h *Hook) resumeTarget(r *http.Request) (*http.Request, bool) {
	raw := r.URL.Query().Get(domain.ResumeParam)
	if raw == "" {
		return nil, false
	}
	if strings.HasPrefix(r.URL.Path, domain.RemediationPrefix) {
		return nil, false
	}

	// Only same-origin paths are honored; an absolute or scheme-relative URL
	// in the marker would turn the hook into an open redirect.
	parsed, err := url.Parse(raw)
	if err != nil || parsed.IsAbs() || parsed.Host != "" || !strings.HasPrefix(parsed.Path, "/") {
		h.logger.Warn("ignoring invalid resume target", "value", raw)
		return nil, false
	}

	resumed := r.Clone(r.Context())
	resumed.URL = parsed
	resumed.RequestURI = parsed.RequestURI()
	return resumed, true
}

func (h *Hook) observe(outcome string, started time.Time) {
	if h.metrics != nil {
		h.metrics.RecordRequest(outcome, time.Since(started))
	}
}

func redirectURL(redirect *domain.Redirect) string {
	if redirect == nil {
		return "/"
	}
	if len(redirect.Query) == 0 {
		return redirect.Path
	}
	values := make(url.Values, len(redirect.Query))
	for k, v := range redirect.Query {
		values.Set(k, v)
	}
	return redirect.Path + "?" + values.Encode()
}

func writeError(w http.ResponseWriter, status int, code, message, traceID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:    code,
		Message: message,
		TraceID: traceID,
	})
}
