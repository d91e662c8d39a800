package gates

import (
	"context"
	"errors"
	"testing"

	"github.com/routegate/routegate/pkg/domain"
)

func TestConfirmGateDeniesUntilConfirmed(t *testing.T) {
	gate := &ConfirmGate{}
	ec := domain.EvalContext{
		Target:  &domain.Target{FullPath: "/buy"},
		Options: map[string]any{"form": "AddKittens"},
	}

	outcome, err := gate.Evaluate(context.Background(), ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != domain.OutcomeRedirect {
		t.Fatalf("expected redirect denial, got %s", outcome.Kind)
	}
	if outcome.Redirect.Path != "/confirm/AddKittens" {
		t.Fatalf("expected remediation path /confirm/AddKittens, got %q", outcome.Redirect.Path)
	}

	ec.Options["confirmed"] = true
	outcome, err = gate.Evaluate(context.Background(), ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.IsPass() {
		t.Fatalf("expected pass once confirmed, got %s", outcome.Kind)
	}
}

func TestConfirmGateProgrammaticDenialNamesForm(t *testing.T) {
	gate := &ConfirmGate{}
	outcome, err := gate.Evaluate(context.Background(), domain.EvalContext{
		Options: map[string]any{"form": "AddKittens"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != domain.OutcomeForm || outcome.FormID != "AddKittens" {
		t.Fatalf("expected form outcome AddKittens, got %+v", outcome)
	}
}

func TestConfirmGateWithoutFormCancels(t *testing.T) {
	gate := &ConfirmGate{}
	outcome, err := gate.Evaluate(context.Background(), domain.EvalContext{
		Target: &domain.Target{FullPath: "/buy"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != domain.OutcomeCancel {
		t.Fatalf("expected cancel without a form id, got %s", outcome.Kind)
	}
}

func TestDenyGateCancels(t *testing.T) {
	gate := &DenyGate{}
	outcome, err := gate.Evaluate(context.Background(), domain.EvalContext{
		Target: &domain.Target{FullPath: "/anywhere"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != domain.OutcomeCancel {
		t.Fatalf("expected cancel, got %s", outcome.Kind)
	}
}

func TestFuncAdapterTranslatesDenial(t *testing.T) {
	gate := Func{
		Check: func(_ context.Context, ec domain.EvalContext) (bool, error) {
			role, _ := ec.Options["role"].(string)
			return role == "admin", nil
		},
		Remediation: domain.Remediation{Kind: domain.RemediationForm, FormID: "Login"},
	}

	outcome, err := gate.Evaluate(context.Background(), domain.EvalContext{
		Target:  &domain.Target{FullPath: "/admin"},
		Options: map[string]any{"role": "guest"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != domain.OutcomeRedirect || outcome.Redirect.Path != "/confirm/Login" {
		t.Fatalf("expected redirect to /confirm/Login, got %+v", outcome)
	}

	outcome, err = gate.Evaluate(context.Background(), domain.EvalContext{
		Options: map[string]any{"role": "admin"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.IsPass() {
		t.Fatalf("expected pass for admin, got %s", outcome.Kind)
	}
}

func TestFuncAdapterPropagatesErrors(t *testing.T) {
	boom := errors.New("device unavailable")
	gate := Func{
		Check: func(context.Context, domain.EvalContext) (bool, error) {
			return false, boom
		},
	}

	_, err := gate.Evaluate(context.Background(), domain.EvalContext{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected check error to propagate, got %v", err)
	}
}

func TestFuncAdapterCustomRoute(t *testing.T) {
	gate := Func{
		Check: func(context.Context, domain.EvalContext) (bool, error) { return false, nil },
		Remediation: domain.Remediation{
			Kind: domain.RemediationRoute,
			Route: func(_ domain.EvalContext) domain.Outcome {
				return domain.RedirectTo(domain.Redirect{Path: "/login", DisableResume: true})
			},
		},
	}

	outcome, err := gate.Evaluate(context.Background(), domain.EvalContext{
		Target: &domain.Target{FullPath: "/dashboard"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != domain.OutcomeRedirect || outcome.Redirect.Path != "/login" {
		t.Fatalf("expected custom redirect to /login, got %+v", outcome)
	}
	if !outcome.Redirect.DisableResume {
		t.Fatalf("expected resume opt-out to survive translation")
	}
}

func TestBuiltinNamesAreStable(t *testing.T) {
	factories := Builtin(nil)
	for _, name := range []string{"allow", "deny", "confirm"} {
		if _, ok := factories[name]; !ok {
			t.Fatalf("expected builtin gate %q", name)
		}
	}
}
