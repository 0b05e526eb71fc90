package alqr

import (
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// Params are the outer loop's numeric knobs, the spec.md §6 Options fields
// that govern dual/penalty updates and termination.
type Params struct {
	DualMax                 float64
	PenaltyMax              float64
	PenaltyInitial          float64
	PenaltyScaling          float64 // growth factor when c_max hasn't shrunk enough
	PenaltyScalingNo        float64 // growth factor when it has (usually 1, "no" extra growth)
	ConstraintDecreaseRatio float64
	MaxOuterIterations      int
	CostTolerance           float64
	ConstraintTolerance     float64
	GradientNormTolerance   float64
	KickoutMaxPenalty       bool

	// UpdateType selects the penalty-growth law the outer loop applies
	// after each inner solve, spec.md §6's outer_loop_update_type: "default"
	// is the threshold rule UpdatePenalties implements (grow by
	// PenaltyScaling unless c_max shrank by ConstraintDecreaseRatio);
	// "feedback" is the proportional rule UpdatePenaltiesFeedback
	// implements (grow in proportion to how little c_max shrank, rather
	// than switching on a single threshold).
	UpdateType string
}

const (
	UpdateTypeDefault  = "default"
	UpdateTypeFeedback = "feedback"
)

// DefaultParams mirrors spec.md §6's numeric defaults for the outer loop.
func DefaultParams() Params {
	return Params{
		DualMax:                 1e8,
		PenaltyMax:              1e8,
		PenaltyInitial:          1.0,
		PenaltyScaling:          10.0,
		PenaltyScalingNo:        1.0,
		ConstraintDecreaseRatio: 0.25,
		MaxOuterIterations:      30,
		CostTolerance:           1e-4,
		ConstraintTolerance:     1e-4,
		GradientNormTolerance:   1e-5,
		KickoutMaxPenalty:       true,
		UpdateType:              UpdateTypeDefault,
	}
}

var equalityGroups = map[traj.Group]bool{
	traj.GroupStateEq:   true,
	traj.GroupControlEq: true,
}

// UpdateDuals applies spec.md §4.8's dual update to every active row of
// both arenas in cs: lambda <- clamp(lambda + mu*c, 0, lambda_max) for
// inequality groups, kappa <- kappa + mu*h for equality groups (the
// multiplier update shares the sign convention of the inequality case —
// the penalty term always pushes the multiplier toward the constraint
// violation, never away from it).
func UpdateDuals(cs *constraint.Set, p Params) {
	updateArena(cs.Interior, p)
	updateArena(cs.Terminal, p)
}

func updateArena(a *traj.DualArena, p Params) {
	for g := traj.Group(0); g < 4; g++ {
		eq := equalityGroups[g]
		for k := range a.Lambda[g] {
			lambda, mu, c := a.Lambda[g][k], a.Mu[g][k], a.C[g][k]
			for j := range lambda {
				if !eq && !a.Active[g][k][j] {
					continue
				}
				v := lambda[j] + mu[j]*c[j]
				if !eq && v < 0 {
					v = 0
				}
				if v > p.DualMax {
					v = p.DualMax
				} else if v < -p.DualMax {
					v = -p.DualMax
				}
				lambda[j] = v
			}
		}
	}
}

// UpdatePenalties applies spec.md §4.8's penalty update: every row's mu
// grows by PenaltyScaling if the outer loop's c_max did not shrink by at
// least ConstraintDecreaseRatio since the previous outer iteration, or by
// PenaltyScalingNo otherwise, clamped to PenaltyMax. Returns true if any
// row is now at PenaltyMax (the kickout condition).
func UpdatePenalties(cs *constraint.Set, p Params, improved bool) bool {
	scale := p.PenaltyScaling
	if improved {
		scale = p.PenaltyScalingNo
	}
	atMax := false
	atMax = scaleArena(cs.Interior, scale, p.PenaltyMax) || atMax
	atMax = scaleArena(cs.Terminal, scale, p.PenaltyMax) || atMax
	return atMax
}

// UpdatePenaltiesFeedback applies the "feedback" penalty law of
// spec.md §6's outer_loop_update_type: the growth factor scales
// continuously between PenaltyScalingNo and PenaltyScaling in proportion to
// the ratio c_max/prevCMax, rather than switching on a single
// ConstraintDecreaseRatio threshold. A c_max that barely moved grows the
// penalty almost as fast as the threshold rule would; a c_max that nearly
// vanished grows it almost not at all.
func UpdatePenaltiesFeedback(cs *constraint.Set, p Params, cMax, prevCMax float64) bool {
	ratio := 1.0
	if prevCMax > 0 {
		ratio = cMax / prevCMax
		if ratio > 1 {
			ratio = 1
		} else if ratio < 0 {
			ratio = 0
		}
	}
	scale := p.PenaltyScalingNo + (p.PenaltyScaling-p.PenaltyScalingNo)*ratio
	atMax := false
	atMax = scaleArena(cs.Interior, scale, p.PenaltyMax) || atMax
	atMax = scaleArena(cs.Terminal, scale, p.PenaltyMax) || atMax
	return atMax
}

func scaleArena(a *traj.DualArena, scale, muMax float64) bool {
	atMax := false
	for g := traj.Group(0); g < 4; g++ {
		for k := range a.Mu[g] {
			mu := a.Mu[g][k]
			for j := range mu {
				v := mu[j] * scale
				if v > muMax {
					v = muMax
				}
				mu[j] = v
				if v >= muMax {
					atMax = true
				}
			}
		}
	}
	return atMax
}
