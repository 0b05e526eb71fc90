package ilqr

import (
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/cost"
	"github.com/arnewlabs/trajopt/internal/embed"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// Params bundles the inner-loop convergence tolerances and step limits of
// spec.md §4.6/§4.7, independent of the fixed problem sizes.
type Params struct {
	CostTolerance      float64
	GradientNormTol    float64
	MaxInnerIterations int
	LineSearch         LineSearchParams
	RhoMin, RhoMax     float64
	RhoFactor          float64
	Bounds             Bounds
	FixedDt            float64
	RMinTime           float64
}

// Result reports how the inner loop ended, per spec.md §4.6/§7. Numerical
// failures (Diverged, RegularizationHit) are reported through these flags,
// never through the returned error: spec.md §7 requires
// RegularizationExceeded to be "emitted once as a warning; solver
// continues, final stats reflect failure to converge" and RolloutDiverged
// to be "reported as non-convergence but not thrown." The returned error
// is reserved for ErrDimensionMismatch/CallbackError-class failures a
// caller must react to differently, not for numerical non-convergence.
type Result struct {
	Converged         bool
	RegularizationHit bool
	Diverged          bool
	Iterations        int
	Cost              float64
	GradientNorm      float64
	RhoIncreases      int
	RhoFinal          float64
}

// Solve runs the iLQR inner loop of spec.md §4.4-§4.7 to convergence against
// the current dual/penalty state held in cs, mutating tr in place. x0 is the
// fixed initial state. shadow is a scratch trajectory of the same shape as
// tr, reused across line search trials.
func Solve(
	tr, shadow *traj.Trajectory,
	dyn *embed.Dynamics,
	q *cost.Quadratic,
	cs *constraint.Set,
	x0 traj.State,
	sz traj.Sizes,
	p Params,
) (*Result, error) {
	reg := NewRegularization(p.RhoMin, p.RhoMax, p.RhoFactor)
	rhoIncreases := 0

	if !Rollout(dyn, tr, x0, p.FixedDt, sz, p.Bounds) {
		return &Result{Converged: false, Diverged: true, RhoFinal: reg.Rho}, nil
	}
	EvaluateConstraints(cs, tr)
	jac := cs.NewJacobians()

	prevCost := trajectoryCost(tr, q, sz) + cs.CostContribution()

	for iter := 0; iter < p.MaxInnerIterations; iter++ {
		cs.JacobianAll(tr, jac)

		var vf *ValueFunction
		for {
			var bp BackwardPassResult
			vf, bp = BackwardPass(tr, dyn, q, cs, jac, reg.Rho, p.RMinTime)
			if bp.OK {
				break
			}
			rhoIncreases++
			if !reg.Increase() {
				return &Result{Converged: false, RegularizationHit: true, Iterations: iter, Cost: prevCost, RhoIncreases: rhoIncreases, RhoFinal: reg.Rho}, nil
			}
		}

		gradNorm := gradientNorm(vf, tr, sz)

		ls := LineSearch(tr, shadow, dyn, q, cs, vf, x0, p.FixedDt, sz, p.Bounds, prevCost, p.LineSearch)
		if !ls.Accepted {
			rhoIncreases++
			if !reg.Increase() {
				return &Result{Converged: false, RegularizationHit: true, Iterations: iter, Cost: prevCost, GradientNorm: gradNorm, RhoIncreases: rhoIncreases, RhoFinal: reg.Rho}, nil
			}
			continue
		}
		reg.Decrease()

		EvaluateConstraints(cs, tr)

		costDrop := prevCost - ls.Cost
		prevCost = ls.Cost

		if costDrop < p.CostTolerance && costDrop >= 0 && gradNorm < p.GradientNormTol {
			return &Result{Converged: true, Iterations: iter + 1, Cost: prevCost, GradientNorm: gradNorm, RhoIncreases: rhoIncreases, RhoFinal: reg.Rho}, nil
		}
	}

	return &Result{Converged: false, Iterations: p.MaxInnerIterations, Cost: prevCost, RhoIncreases: rhoIncreases, RhoFinal: reg.Rho}, nil
}

// gradientNorm approximates the first-order optimality residual as
// max_k ‖d_k‖∞ / max(‖u_k‖∞, 1), the normalized feedforward-gain norm spec.md
// §4.6 uses as the gradient tolerance check.
func gradientNorm(vf *ValueFunction, tr *traj.Trajectory, sz traj.Sizes) float64 {
	m := 0.0
	for k, d := range vf.D {
		denom := 1.0
		if n := tr.U[k].InfNorm(); n > denom {
			denom = n
		}
		dn := traj.Control(d).InfNorm() / denom
		if dn > m {
			m = dn
		}
	}
	return m
}
