package engine

import (
	"context"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/routegate/routegate/pkg/domain"
)

// Short-circuit law: for any gate list where gate k denies and all gates before
// it pass, the run names gate k, every gate before k runs exactly once, and no
// gate after k ever runs.
func TestRunShortCircuitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(1, 8).Draw(t, "total")
		denyAt := rapid.IntRange(0, total-1).Draw(t, "denyAt")

		gateSet := make(map[string]domain.Gate, total)
		counters := make([]*countingGate, total)
		refs := make([]domain.GateRef, total)
		for i := 0; i < total; i++ {
			outcome := domain.Pass()
			if i == denyAt {
				outcome = domain.Cancel()
			}
			counters[i] = &countingGate{outcome: outcome}
			name := fmt.Sprintf("gate-%d", i)
			gateSet[name] = counters[i]
			refs[i] = domain.Ref(name)
		}

		pipeline := New(newTestRegistry(gateSet))
		pipeline.Configure(refs...)

		result, err := pipeline.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil {
			t.Fatalf("expected a denial from gate %d", denyAt)
		}
		if want := fmt.Sprintf("gate-%d", denyAt); result.Gate != want {
			t.Fatalf("expected denial from %s, got %s", want, result.Gate)
		}

		for i, counter := range counters {
			want := 0
			if i <= denyAt {
				want = 1
			}
			if counter.calls != want {
				t.Fatalf("gate %d: expected %d calls, got %d", i, want, counter.calls)
			}
		}
	})
}
