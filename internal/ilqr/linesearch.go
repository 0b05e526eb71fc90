package ilqr

import (
	"math"

	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/cost"
	"github.com/arnewlabs/trajopt/internal/embed"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// LineSearchParams are the backtracking schedule and Armijo acceptance
// bounds of spec.md §4.6.
type LineSearchParams struct {
	MaxIterations int
	Phi           float64 // step shrink factor per failed trial, e.g. 0.5
	C1, C2        float64 // acceptance band for (J - J')/(-alpha*DeltaV)
}

// DefaultLineSearchParams mirrors spec.md §4.6's defaults.
func DefaultLineSearchParams() LineSearchParams {
	return LineSearchParams{MaxIterations: 10, Phi: 0.5, C1: 1e-4, C2: 10.0}
}

// LineSearchResult reports the accepted step, or that every trial failed.
type LineSearchResult struct {
	Accepted bool
	Alpha    float64
	Cost     float64
	Trials   int
}

// LineSearch performs the backtracking search of spec.md §4.6: at each
// trial step size alpha, it rolls the shadow trajectory forward under the
// new control law u'_k = u_k + alpha*d_k + K_k(x'_k - x_k), checks bounds,
// and accepts the first alpha whose improvement ratio falls in [c1,c2].
// On accept it copies the shadow trajectory into tr and returns the new
// cost; tr is left unchanged on failure.
func LineSearch(
	tr, shadow *traj.Trajectory,
	dyn *embed.Dynamics,
	q *cost.Quadratic,
	cs *constraint.Set,
	vf *ValueFunction,
	x0 traj.State,
	fixedDt float64,
	sz traj.Sizes,
	bounds Bounds,
	baseCost float64,
	params LineSearchParams,
) LineSearchResult {
	alpha := 1.0
	numInterior := sz.K - 1

	for trial := 0; trial < params.MaxIterations; trial++ {
		copy(shadow.X[0], x0)
		diverged := false

		for k := 0; k < numInterior; k++ {
			dx := make([]float64, sz.N)
			for i := 0; i < sz.N; i++ {
				dx[i] = shadow.X[k][i] - tr.X[k][i]
			}
			fb := matVec(vf.K[k], dx, len(vf.K[k]), sz.N)

			u := make(traj.Control, sz.MM)
			for i := 0; i < sz.MM; i++ {
				u[i] = tr.U[k][i] + alpha*vf.D[k][i] + fb[i]
			}
			shadow.U[k] = u

			dt := embed.DtFromControl(u, sz, fixedDt)
			shadow.Dt[k] = dt
			if sz.MinimumTime && (dt < bounds.MinDt*0.25 || dt > bounds.MaxDt*4) {
				diverged = true
				break
			}

			var xNext traj.State
			if tr.Foh {
				uNext := tr.U[k+1]
				xNext = dyn.FdFoh(shadow.X[k], u, uNext, dt)
			} else {
				xNext = dyn.Fd(shadow.X[k], u, dt)
			}
			if !xNext.IsValid() || xNext.InfNorm() >= bounds.MaxState {
				diverged = true
				break
			}
			if traj.Control(u[:sz.M]).InfNorm() >= bounds.MaxControl {
				diverged = true
				break
			}
			copy(shadow.X[k+1], xNext)
		}

		if diverged {
			alpha *= params.Phi
			continue
		}

		if tr.Foh {
			recomputeFohAux(shadow, sz)
		}

		cs.EvaluateAll(shadow)
		newCost := trajectoryCost(shadow, q, sz) + cs.CostContribution()

		denom := -alpha * vf.DeltaV
		var ratio float64
		if math.Abs(denom) < 1e-12 {
			ratio = 1.0
		} else {
			ratio = (baseCost - newCost) / denom
		}

		if ratio >= params.C1 && ratio <= params.C2 {
			tr.CopyFrom(shadow)
			return LineSearchResult{Accepted: true, Alpha: alpha, Cost: newCost, Trials: trial + 1}
		}

		alpha *= params.Phi
	}

	return LineSearchResult{Accepted: false, Trials: params.MaxIterations}
}

// trajectoryCost returns the unweighted running+terminal quadratic cost of
// tr (no constraint penalty terms), per spec.md §4.2's total-cost sum.
// Under foh it uses the Simpson-rule interval cost over the midpoint
// auxiliaries recomputeFohAux fills after every rollout/trial.
func trajectoryCost(tr *traj.Trajectory, q *cost.Quadratic, sz traj.Sizes) float64 {
	total := 0.0
	for k := 0; k < sz.K-1; k++ {
		if tr.Foh {
			total += q.StageFoh(tr.X[k], tr.Xm[k], tr.X[k+1], tr.U[k], traj.Control(tr.Um[k]), tr.U[k+1], tr.Dt[k])
		} else {
			total += q.Stage(tr.X[k], tr.U[k], tr.Dt[k])
		}
	}
	total += q.Terminal(tr.X[sz.K-1])
	return total
}
