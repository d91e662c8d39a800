package domain

import "context"

// Conventions shared between the engine and the navigation adapter.
const (
	// ResumeParam is the query parameter carrying the original destination
	// across a remediation redirect.
	ResumeParam = "redirect"

	// RemediationPrefix is the conventional path prefix for remediation forms.
	RemediationPrefix = "/confirm/"
)

// GateRef identifies a gate by name plus per-invocation options. The position of
// a GateRef in its owning list defines evaluation order.
type GateRef struct {
	Name    string
	Options map[string]any
}

// Ref returns a GateRef with no options.
func Ref(name string) GateRef {
	return GateRef{Name: name}
}

// Refs converts bare gate names into an ordered reference list.
func Refs(names ...string) []GateRef {
	refs := make([]GateRef, len(names))
	for i, name := range names {
		refs[i] = GateRef{Name: name}
	}
	return refs
}

// Target describes where a navigation wants to go. A nil *Target passed to a gate
// signals an ad-hoc programmatic check rather than a navigation.
type Target struct {
	FullPath string
	Gates    []GateRef
}

// EvalContext is the per-call context handed to a gate. It is built fresh for every
// evaluation; gates must not retain it across calls.
type EvalContext struct {
	Target  *Target
	Options map[string]any
}

// OutcomeKind discriminates the possible gate outcomes.
type OutcomeKind string

const (
	// OutcomePass lets the request continue to the next gate.
	OutcomePass OutcomeKind = "pass"
	// OutcomeCancel stops the request entirely; no remediation is possible.
	OutcomeCancel OutcomeKind = "cancel"
	// OutcomeForm is the programmatic (non-navigation) shape of a form denial:
	// the caller is told which form would satisfy the gate.
	OutcomeForm OutcomeKind = "form"
	// OutcomeRedirect diverts the request to a remediation target.
	OutcomeRedirect OutcomeKind = "redirect"
)

// Redirect describes a remediation target produced by a denial.
type Redirect struct {
	Path  string
	Query map[string]string

	// DisableResume, when set, suppresses attachment of the resume query
	// parameter even when the original target has a resolvable full path.
	// The zero value means the resume parameter is wanted.
	DisableResume bool
}

// Outcome is the discriminated result of a single gate evaluation.
type Outcome struct {
	Kind     OutcomeKind
	FormID   string
	Redirect *Redirect
}

// Pass returns the outcome that lets the request continue.
func Pass() Outcome {
	return Outcome{Kind: OutcomePass}
}

// Cancel returns the outcome that stops the request with no remediation.
func Cancel() Outcome {
	return Outcome{Kind: OutcomeCancel}
}

// Form returns the programmatic denial naming the remediation form.
func Form(id string) Outcome {
	return Outcome{Kind: OutcomeForm, FormID: id}
}

// RedirectTo returns the denial that diverts the request to r.
func RedirectTo(r Redirect) Outcome {
	return Outcome{Kind: OutcomeRedirect, Redirect: &r}
}

// IsPass reports whether the outcome lets the request continue. The zero Outcome
// is not a pass; gates signal a pass explicitly.
func (o Outcome) IsPass() bool {
	return o.Kind == OutcomePass
}

// Result names the gate that stopped a pipeline run and its outcome. A nil
// *Result from a run means every configured gate passed.
type Result struct {
	Gate    string
	Outcome Outcome
}

// Gate is a named unit of access policy. Evaluate returns Pass to let the request
// continue, or a denial outcome. Evaluation may block on external I/O (permission
// prompts, network, storage); the engine awaits each gate to completion before the
// next one starts. Implementations must not mutate state outside their own
// instance; the EvalContext argument carries all per-call inputs.
//
// A gate instance is cached and reused across evaluations (see registry.Registry).
// Instances are not safe for concurrent Evaluate calls unless the implementation
// is itself stateless; callers serialize uses of a given registry.
type Gate interface {
	Evaluate(ctx context.Context, ec EvalContext) (Outcome, error)
}

// Factory constructs a gate instance. A registry invokes a factory at most once
// per gate name and caches the result for its own lifetime.
type Factory func() Gate

// RemediationKind discriminates how a denial is remediated.
type RemediationKind string

const (
	// RemediationCancel denies with no remediation path.
	RemediationCancel RemediationKind = "cancel"
	// RemediationForm denies by pointing at a remediation form.
	RemediationForm RemediationKind = "form"
	// RemediationRoute denies through a custom route function.
	RemediationRoute RemediationKind = "route"
)

// RouteFunc computes a custom denial outcome for a navigation context.
type RouteFunc func(ec EvalContext) Outcome

// Remediation is a tagged descriptor selecting how a gate's denial translates
// into an outcome. It replaces per-gate method overriding with explicit
// configuration; Deny applies it.
type Remediation struct {
	Kind   RemediationKind
	FormID string
	Route  RouteFunc
}

// RemediationPath returns the conventional remediation path for a form.
func RemediationPath(formID string) string {
	return RemediationPrefix + formID
}

// Deny translates a gate denial into an Outcome using the default
// deny-to-outcome rules:
//
//   - Without a navigation target, the denial is the remediation form id when
//     one is configured, otherwise Cancel.
//   - With a navigation target, a RemediationRoute descriptor routes the denial
//     itself; a form descriptor redirects to the conventional remediation path
//     for its form; anything else is Cancel.
//
// Resume-query attachment is not handled here; the engine attaches it when the
// final outcome is a Redirect that has not opted out.
func Deny(ec EvalContext, rem Remediation) Outcome {
	if ec.Target == nil {
		if rem.FormID != "" {
			return Form(rem.FormID)
		}
		return Cancel()
	}
	if rem.Kind == RemediationRoute && rem.Route != nil {
		return rem.Route(ec)
	}
	if rem.FormID == "" {
		return Cancel()
	}
	return RedirectTo(Redirect{Path: RemediationPath(rem.FormID)})
}
