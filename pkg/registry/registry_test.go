package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/routegate/routegate/pkg/domain"
)

type stubGate struct{}

func (stubGate) Evaluate(context.Context, domain.EvalContext) (domain.Outcome, error) {
	return domain.Pass(), nil
}

func TestResolveCachesSingletonPerName(t *testing.T) {
	constructed := 0
	reg := New(map[string]domain.Factory{
		"auth": func() domain.Gate {
			constructed++
			return &stubGate{}
		},
	})

	first, err := reg.Resolve("auth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := reg.Resolve("auth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Fatalf("expected identical instance across resolves")
	}
	if constructed != 1 {
		t.Fatalf("expected factory to run exactly once, ran %d times", constructed)
	}
}

func TestResolveUnknownGateFails(t *testing.T) {
	reg := New(nil)

	gate, err := reg.Resolve("missing")
	if gate != nil {
		t.Fatalf("unknown gate must not yield an instance")
	}
	var unknown *domain.UnknownGateError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownGateError, got %v", err)
	}
	if unknown.Name != "missing" {
		t.Fatalf("expected name missing, got %q", unknown.Name)
	}
}

func TestRegisterAfterFailureAllowsRetry(t *testing.T) {
	reg := New(nil)

	if _, err := reg.Resolve("late"); err == nil {
		t.Fatalf("expected resolution failure before registration")
	}

	reg.Register("late", func() domain.Gate { return &stubGate{} })

	gate, err := reg.Resolve("late")
	if err != nil {
		t.Fatalf("expected retry to succeed after registration, got %v", err)
	}
	if gate == nil {
		t.Fatalf("expected a gate instance")
	}
}

type mapLoader map[string]domain.Factory

func (l mapLoader) Load(name string) (domain.Factory, error) {
	factory, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("no module for %q", name)
	}
	return factory, nil
}

func TestResolveFallsBackToLoader(t *testing.T) {
	constructed := 0
	loader := mapLoader{
		"plugin": func() domain.Gate {
			constructed++
			return &stubGate{}
		},
	}
	reg := New(nil, WithLoader(loader))

	first, err := reg.Resolve("plugin")
	if err != nil {
		t.Fatalf("expected loader fallback to resolve, got %v", err)
	}
	second, err := reg.Resolve("plugin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Fatalf("loader-resolved gates must be cached like registered ones")
	}
	if constructed != 1 {
		t.Fatalf("expected one construction via loader, got %d", constructed)
	}
}

func TestResolvePrefersRegisteredFactoryOverLoader(t *testing.T) {
	loader := mapLoader{}

	registered := &stubGate{}
	reg := New(map[string]domain.Factory{
		"auth": func() domain.Gate { return registered },
	}, WithLoader(loader))

	gate, err := reg.Resolve("auth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate != registered {
		t.Fatalf("expected the registered factory's instance")
	}
}
