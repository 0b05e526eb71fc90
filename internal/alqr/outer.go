package alqr

import (
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/cost"
	"github.com/arnewlabs/trajopt/internal/embed"
	"github.com/arnewlabs/trajopt/internal/ilqr"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// Record is one outer iteration's summary, the per-iteration row of the
// solve history spec.md's façade reports back to the caller.
type Record struct {
	Outer           int
	State           State
	Cost            float64
	CMax            float64
	MaxPenalty      float64
	InnerIterations int
	RhoIncreases    int
	RhoFinal        float64
	Diverged        bool
	RegularizationHit bool
}

// Outcome is the result of running the outer loop to one of its terminal
// states, per spec.md §4.8. RhoIncreases/RhoFinal accumulate across every
// inner solve, per spec.md §8 scenario 6's stats.rho_increases check.
type Outcome struct {
	State          State
	OuterIterations int
	TotalInner     int
	RhoIncreases   int
	RhoFinal       float64
	History        []Record
}

// Solve runs the augmented Lagrangian outer loop of spec.md §4.8 over a
// fixed embedding configuration (the caller handles the infeasible-start
// "go feasible" transition by stripping the trajectory and calling Solve
// again on the reduced problem; see internal/solver). tr is mutated in
// place to the final accepted trajectory.
func Solve(
	tr, shadow *traj.Trajectory,
	dyn *embed.Dynamics,
	q *cost.Quadratic,
	cs *constraint.Set,
	x0 traj.State,
	sz traj.Sizes,
	inner ilqr.Params,
	outer Params,
) (*Outcome, error) {
	oc := &Outcome{State: StateInitialized}
	prevCMax := maxFloat

	for o := 0; o < outer.MaxOuterIterations; o++ {
		res, err := ilqr.Solve(tr, shadow, dyn, q, cs, x0, sz, inner)
		if err != nil {
			return oc, err
		}
		oc.TotalInner += res.Iterations
		oc.OuterIterations = o + 1
		oc.RhoIncreases += res.RhoIncreases
		oc.RhoFinal = res.RhoFinal

		cMax := cs.CMax()
		rec := Record{
			Outer:             o,
			State:             StateInnerConverged,
			Cost:              res.Cost,
			CMax:              cMax,
			MaxPenalty:        maxPenalty(cs),
			InnerIterations:   res.Iterations,
			RhoIncreases:      res.RhoIncreases,
			RhoFinal:          res.RhoFinal,
			Diverged:          res.Diverged,
			RegularizationHit: res.RegularizationHit,
		}
		oc.History = append(oc.History, rec)

		if cMax < outer.ConstraintTolerance {
			oc.State = StateConverged
			return oc, nil
		}

		UpdateDuals(cs, outer)
		var atMax bool
		if outer.UpdateType == UpdateTypeFeedback {
			atMax = UpdatePenaltiesFeedback(cs, outer, cMax, prevCMax)
		} else {
			improved := cMax <= prevCMax*outer.ConstraintDecreaseRatio
			atMax = UpdatePenalties(cs, outer, improved)
		}
		prevCMax = cMax

		if atMax && outer.KickoutMaxPenalty {
			oc.State = StateMaxPenalty
			return oc, nil
		}
	}

	oc.State = StateIterationCap
	return oc, nil
}

func maxPenalty(cs *constraint.Set) float64 {
	a := cs.Interior.MaxPenalty()
	if b := cs.Terminal.MaxPenalty(); b > a {
		a = b
	}
	return a
}

const maxFloat = 1.0e300
