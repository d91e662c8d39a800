// Package gates provides built-in gate implementations and the Func adapter for
// building gates from a check function plus a remediation descriptor.
package gates

import (
	"context"
	"log/slog"

	"github.com/routegate/routegate/pkg/domain"
)

// Func adapts a boolean check and a remediation descriptor into a gate. Check
// returning true passes; false denies through the descriptor's default
// deny-to-outcome translation.
type Func struct {
	Check       func(ctx context.Context, ec domain.EvalContext) (bool, error)
	Remediation domain.Remediation
}

// Evaluate runs the check and translates a denial through the descriptor.
func (g Func) Evaluate(ctx context.Context, ec domain.EvalContext) (domain.Outcome, error) {
	ok, err := g.Check(ctx, ec)
	if err != nil {
		return domain.Outcome{}, err
	}
	if ok {
		return domain.Pass(), nil
	}
	return domain.Deny(ec, g.Remediation), nil
}

// AllowGate passes every request. Useful as a placeholder in route tables.
type AllowGate struct {
	logger *slog.Logger
}

// Evaluate logs the evaluation and passes.
func (g *AllowGate) Evaluate(_ context.Context, _ domain.EvalContext) (domain.Outcome, error) {
	if g.logger != nil {
		g.logger.Debug("allow gate evaluated")
	}
	return domain.Pass(), nil
}

// DenyGate cancels every request; there is no remediation.
type DenyGate struct{}

// Evaluate denies with the cancel remediation.
func (g *DenyGate) Evaluate(_ context.Context, ec domain.EvalContext) (domain.Outcome, error) {
	return domain.Deny(ec, domain.Remediation{Kind: domain.RemediationCancel}), nil
}

// ConfirmGate denies until the caller confirms, pointing at the remediation form
// named in the gate options:
//
//	options["form"]      - remediation form id; absent means the denial is Cancel
//	options["confirmed"] - true makes the gate pass
//
// In a navigation context the denial redirects to the conventional remediation
// path for the form; programmatically it returns the form id.
type ConfirmGate struct{}

// Evaluate checks the confirmed flag and denies through the form remediation.
func (g *ConfirmGate) Evaluate(_ context.Context, ec domain.EvalContext) (domain.Outcome, error) {
	if confirmed, _ := ec.Options["confirmed"].(bool); confirmed {
		return domain.Pass(), nil
	}
	formID, _ := ec.Options["form"].(string)
	return domain.Deny(ec, domain.Remediation{Kind: domain.RemediationForm, FormID: formID}), nil
}

// Builtin returns the factory map for the built-in gates, keyed by the names
// usable in route configuration.
func Builtin(logger *slog.Logger) map[string]domain.Factory {
	return map[string]domain.Factory{
		"allow":   func() domain.Gate { return &AllowGate{logger: logger} },
		"deny":    func() domain.Gate { return &DenyGate{} },
		"confirm": func() domain.Gate { return &ConfirmGate{} },
	}
}
