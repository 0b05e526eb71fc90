package embed

import (
	"math"

	"github.com/arnewlabs/trajopt/internal/cost"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// AddMinTimeCostTerms folds the u[col]^2-chain-rule Hessian/gradient of
// the R_mt*dt stage cost term into an already-computed [cost.Expansion],
// per spec.md §4.10 ("Stage cost gains R_mt·dt_k per interval"). The base
// expansion does not know about the dt(u) relationship (cost.Quadratic
// only adds the R_mt*dt scalar to the cost value, not its derivative);
// this decorator supplies the missing derivative terms for the minimum-
// time control column.
func AddMinTimeCostTerms(e *cost.Expansion, u traj.Control, sz traj.Sizes, rMinTime float64) {
	if !sz.MinimumTime {
		return
	}
	col := sz.MinTimeCol()
	// d(R_mt*u[col]^2)/du[col] = 2*R_mt*u[col]; d²/du[col]² = 2*R_mt.
	e.Ru[col] += 2 * rMinTime * u[col]
	e.Ruu[col][col] += 2 * rMinTime
}

// DtFromControl extracts dt_k = u_k[col]^2 when minimum-time is enabled,
// or returns the fixed dt otherwise, per spec.md §3's invariant
// "dt_k = (u_k[m̄])²".
func DtFromControl(u traj.Control, sz traj.Sizes, fixedDt float64) float64 {
	if !sz.MinimumTime {
		return fixedDt
	}
	v := u[sz.MinTimeCol()]
	return v * v
}

// ClampMinTimeControl clamps u[col] to [√minDt, √maxDt] in place, the
// box bound spec.md §4.10 describes as an inequality. The solver does not
// call it: it enforces that bound only through a box constraint and its
// AL penalty.
func ClampMinTimeControl(u traj.Control, sz traj.Sizes, minDt, maxDt float64) {
	if !sz.MinimumTime {
		return
	}
	col := sz.MinTimeCol()
	lo, hi := math.Sqrt(minDt), math.Sqrt(maxDt)
	if u[col] < lo {
		u[col] = lo
	}
	if u[col] > hi {
		u[col] = hi
	}
}
