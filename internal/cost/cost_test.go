package cost

import (
	"math"
	"testing"

	"github.com/arnewlabs/trajopt/internal/traj"
)

func diag(vals ...float64) [][]float64 {
	m := make([][]float64, len(vals))
	for i, v := range vals {
		m[i] = make([]float64, len(vals))
		m[i][i] = v
	}
	return m
}

// TestStageControlDimMismatch guards against the m<n control-dim bug: for
// every example scenario (double integrator, pendulum, car parking,
// cartpole) the control dim m is strictly less than the state dim n, so a
// stage cost that slices u by len(Q) instead of len(R) panics with
// "slice bounds out of range" on the very first rollout.
func TestStageControlDimMismatch(t *testing.T) {
	sz := traj.NewSizes(2, 1, 3, false, false)
	q := &Quadratic{
		Q: diag(0, 0), R: diag(0.1), Qf: diag(100, 100),
		Xf: traj.State{0, 0}, Sizes: sz,
	}
	x := traj.State{1, 0}
	u := traj.Control{0.5}

	val := q.Stage(x, u, 0.1)
	want := 0.5 * 0.1 * 0.5 * 0.5 * 0.1 // 0.5*R*u^2 * dt
	if math.Abs(val-want) > 1e-12 {
		t.Fatalf("Stage() = %v, want %v", val, want)
	}
}

func TestExpandControlDimMismatch(t *testing.T) {
	sz := traj.NewSizes(2, 1, 3, false, false)
	q := &Quadratic{
		Q: diag(1, 1), R: diag(0.1), Qf: diag(100, 100),
		Xf: traj.State{0, 0}, Sizes: sz,
	}
	x := traj.State{1, 0}
	u := traj.Control{0.5}

	e := q.Expand(x, u, 0.1)
	if len(e.Ru) != 1 {
		t.Fatalf("expected Ru of length 1 (mm=1), got %d", len(e.Ru))
	}
	want := 0.1 * 0.5 * 0.1 // R*u*dt
	if math.Abs(e.Ru[0]-want) > 1e-12 {
		t.Fatalf("Ru[0] = %v, want %v", e.Ru[0], want)
	}
}

// TestMinimumTimeCostLinearInDt checks spec.md §4.2 ("Min-time adds
// R_mt*dt_k per interval"): the time-penalty contribution to Stage must be
// linear in dt, matching the R_mt*u[col]^2 = R_mt*dt quadratic model
// internal/embed/mintime.go folds into the backward pass. Squaring dt here
// (as the previous bug did, by adding the term before the outer *dt) would
// make iLQR's cost value and its quadratic expansion disagree.
func TestMinimumTimeCostLinearInDt(t *testing.T) {
	sz := traj.NewSizes(2, 2, 3, true, false)
	q := &Quadratic{
		Q: diag(0, 0), R: diag(0, 0), Qf: diag(0, 0),
		Xf:          traj.State{0, 0},
		MinimumTime: true,
		RMinTime:    2.0,
		Sizes:       sz,
	}
	x := traj.State{0, 0}
	// Stage's dt argument (not u[MinTimeCol()]) drives the time-penalty
	// term, so a zero plant control is sufficient here.
	u := traj.Control{0, 0}

	dt1 := 0.1
	val1 := q.Stage(x, u, dt1)

	dt2 := 0.2
	val2 := q.Stage(x, u, dt2)

	// Linear in dt: val2/val1 should equal dt2/dt1, not (dt2/dt1)^2.
	ratio := val2 / val1
	want := dt2 / dt1
	if math.Abs(ratio-want) > 1e-9 {
		t.Fatalf("minimum-time stage cost is not linear in dt: ratio=%v want=%v", ratio, want)
	}

	wantVal1 := q.RMinTime * dt1
	if math.Abs(val1-wantVal1) > 1e-12 {
		t.Fatalf("Stage() with zero Q/R = %v, want R_mt*dt = %v", val1, wantVal1)
	}
}

func TestInfeasiblePenaltyLinearInDt(t *testing.T) {
	sz := traj.NewSizes(2, 1, 3, false, true)
	q := &Quadratic{
		Q: diag(0, 0), R: diag(0), Qf: diag(0, 0),
		Xf:          traj.State{0, 0},
		Infeasible:  true,
		RInfeasible: 4.0,
		Sizes:       sz,
	}
	x := traj.State{0, 0}
	lo, hi := sz.InfeasibleCols()
	u := make(traj.Control, sz.MM)
	u[lo] = 1.0
	if hi-lo > 1 {
		u[lo+1] = 0.0
	}

	dt := 0.1
	val := q.Stage(x, u, dt)
	want := 0.5 * q.RInfeasible * 1.0 * dt
	if math.Abs(val-want) > 1e-12 {
		t.Fatalf("Stage() infeasible penalty = %v, want %v", val, want)
	}
}
