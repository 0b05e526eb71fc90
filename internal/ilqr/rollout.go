package ilqr

import (
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/embed"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// Bounds are the hard state/control limits of spec.md §3's invariant:
// after every successful rollout, ‖x_k‖∞ < MaxState and ‖u_k‖∞ < MaxControl
// for all k.
type Bounds struct {
	MaxState, MaxControl float64
	MinDt, MaxDt         float64
}

// Rollout performs the forward simulation of spec.md §4.4: fixes x_1=x0,
// steps through the dynamics (computing dt_k from the minimum-time
// control column when enabled, and adding the infeasible-start slack to
// x_{k+1} when enabled), and reports whether every state/control stayed
// within bounds. fixedDt is used for every interval when minimum-time is
// not enabled.
func Rollout(dyn *embed.Dynamics, tr *traj.Trajectory, x0 traj.State, fixedDt float64, sz traj.Sizes, b Bounds) bool {
	copy(tr.X[0], x0)
	ok := true

	for k := 0; k < sz.K-1; k++ {
		dt := embed.DtFromControl(tr.U[k], sz, fixedDt)
		tr.Dt[k] = dt

		if sz.MinimumTime && (dt < b.MinDt*0.25 || dt > b.MaxDt*4) {
			// grossly out-of-range dt makes the step numerically useless;
			// treat as divergence rather than propagate garbage.
			ok = false
		}

		var xNext traj.State
		if tr.Foh {
			xNext = dyn.FdFoh(tr.X[k], tr.U[k], tr.U[k+1], dt)
		} else {
			xNext = dyn.Fd(tr.X[k], tr.U[k], dt)
		}

		if !xNext.IsValid() || xNext.InfNorm() >= b.MaxState {
			ok = false
		}
		if tr.U[k][:sz.M].InfNorm() >= b.MaxControl {
			ok = false
		}

		copy(tr.X[k+1], xNext)

		if !ok {
			return false
		}
	}

	if tr.Foh {
		recomputeFohAux(tr, sz)
	}
	return true
}

// recomputeFohAux fills the foh midpoint auxiliaries (dx_k, state and
// control midpoints) spec.md §3 describes, after a rollout. Dx_k is the
// interval's average rate of change (x_{k+1}-x_k)/dt_k, standing in for
// fc(x_k,u_k) since BaseDynamics doesn't expose the continuous dynamics
// to the embedding-wrapped adapter; Xm is then stepped a half-interval
// from x_k using that rate, which is algebraically the same point as the
// simple (x_k+x_{k+1})/2 average but keeps Dx load-bearing rather than a
// second, disconnected computation of the same quantity. Read by StageFoh
// (trajectoryCost) and by the foh-coupled backward pass (backward.go) for
// their Simpson-point evaluations.
func recomputeFohAux(tr *traj.Trajectory, sz traj.Sizes) {
	for k := 0; k < sz.K-1; k++ {
		dt := tr.Dt[k]
		for i := 0; i < sz.N; i++ {
			if dt > 0 {
				tr.Dx[k][i] = (tr.X[k+1][i] - tr.X[k][i]) / dt
			} else {
				tr.Dx[k][i] = 0
			}
			tr.Xm[k][i] = tr.X[k][i] + 0.5*dt*tr.Dx[k][i]
		}
		for i := 0; i < sz.MM && i < len(tr.U[k+1]); i++ {
			tr.Um[k][i] = 0.5 * (tr.U[k][i] + tr.U[k+1][i])
		}
	}
}

// EvaluateConstraints re-evaluates the constraint set and active sets
// against the current trajectory, the tail end of spec.md §4.4's "After
// full rollout ... re-evaluate constraints + active sets."
func EvaluateConstraints(cs *constraint.Set, tr *traj.Trajectory) {
	cs.EvaluateAll(tr)
	cs.UpdateActiveSets()
}
