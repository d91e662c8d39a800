package nav

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/routegate/routegate/pkg/domain"
	"github.com/routegate/routegate/pkg/engine"
	"github.com/routegate/routegate/pkg/registry"
)

// InstallOptions is the single registration surface for a host.
type InstallOptions struct {
	// Gates maps gate names to factories. Required.
	Gates map[string]domain.Factory

	// Loader is the optional fallback consulted for names missing from Gates.
	Loader registry.Loader

	// Routes declares which gates guard which paths. Required when Mux is set.
	Routes RouteSource

	// Mux is the optional navigation handle. When nil the navigation hook is
	// not installed and the kit is only usable programmatically.
	Mux *http.ServeMux

	// Next is the handler guarded by the hook; defaults to http.NotFoundHandler.
	Next http.Handler

	Logger  *slog.Logger
	Metrics *Metrics
}

// Kit is what Install hands back to the host: the shared registry plus, when a
// navigation handle was supplied, the installed hook.
type Kit struct {
	Registry *registry.Registry
	Hook     *Hook
}

// Pipeline returns a fresh pipeline over the kit's registry for programmatic
// checks. Each call returns an independent pipeline; the cached gate instances
// behind it are shared.
func (k *Kit) Pipeline() *engine.Pipeline {
	return engine.New(k.Registry)
}

// Install builds the registry from the supplied gate factories and, when a mux
// is given, mounts the navigation hook on it at the root pattern.
func Install(opts InstallOptions) (*Kit, error) {
	if len(opts.Gates) == 0 {
		return nil, fmt.Errorf("install: at least one gate factory is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	regOpts := []registry.Option{registry.WithLogger(logger)}
	if opts.Loader != nil {
		regOpts = append(regOpts, registry.WithLoader(opts.Loader))
	}
	reg := registry.New(opts.Gates, regOpts...)

	kit := &Kit{Registry: reg}
	if opts.Mux == nil {
		return kit, nil
	}

	if opts.Routes == nil {
		return nil, fmt.Errorf("install: routes are required when a mux is supplied")
	}

	next := opts.Next
	if next == nil {
		next = http.NotFoundHandler()
	}

	hookOpts := []HookOption{WithLogger(logger)}
	if opts.Metrics != nil {
		hookOpts = append(hookOpts, WithMetrics(opts.Metrics))
	}
	kit.Hook = NewHook(reg, opts.Routes, hookOpts...)
	opts.Mux.Handle("/", kit.Hook.Middleware(next))

	return kit, nil
}
