// Package solver is the façade of spec.md §6: solve(problem, options) ->
// (trajectory, stats). It wires a user-supplied continuous dynamics model
// and quadratic cost into the internal/model discretization adapter, the
// internal/embed minimum-time/infeasible-start embeddings, the
// internal/constraint set, and the internal/alqr outer loop, and strips
// the augmented control columns before returning. Grounded on the
// teacher's cmd/dynsim wiring (registry -> dynamics -> integrator ->
// controller -> Simulator.Run), generalized from "build and run one
// simulation" to "build and solve one trajectory optimization problem."
package solver

import (
	"log/slog"
	"math"

	"github.com/arnewlabs/trajopt/internal/alqr"
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/cost"
	"github.com/arnewlabs/trajopt/internal/embed"
	"github.com/arnewlabs/trajopt/internal/ilqr"
	"github.com/arnewlabs/trajopt/internal/model"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// Problem is spec.md §6's problem struct: { n, m, N, x0, xf, Q, R, Qf, c,
// fd, Fd, fc?, Fc?, constraints?, tf?, min_dt?, max_dt? }. fd/Fd (the
// discrete dynamics and its Jacobian) are supplied implicitly: Dynamics is
// a continuous model, and internal/model.Adapter discretizes it (RK4 for
// zoh, a Simpson-weighted step for foh) rather than requiring the caller to
// hand-derive a discrete Jacobian.
type Problem struct {
	StateDim, ControlDim, Knots int
	X0, Xf                      traj.State
	Q, R, Qf                    [][]float64
	C                           float64

	Dynamics model.Dynamics

	// Constraints accumulates the problem's box/general constraints; may
	// be nil for an unconstrained problem. The minimum-time link and
	// infeasible-start equality are added automatically by Solve when
	// Options enables those embeddings.
	Constraints *constraint.Builder

	// Tf seeds the fixed (or initial, under minimum-time) interval length
	// as Tf/(Knots-1). Zero defaults to 1.0/(Knots-1).
	Tf float64

	// MinDt, MaxDt bound the minimum-time control column via a box
	// constraint on its sqrt; both zero means unconstrained.
	MinDt, MaxDt float64
}

// Options is spec.md §6's enumerated options set, plus the Go-idiomatic
// extensions SPEC_FULL.md §6 adds (Logger, ConstraintWorkers).
type Options struct {
	CostTolerance             float64
	CostToleranceIntermediate float64

	GradientNormTolerance             float64
	GradientNormToleranceIntermediate float64

	ConstraintTolerance             float64
	ConstraintToleranceIntermediate float64

	Iterations      int // outer cap
	IterationsInner int // inner cap

	DualMax, PenaltyMax, PenaltyInitial               float64
	PenaltyScaling, PenaltyScalingNo                  float64
	ConstraintDecreaseRatio                           float64
	RhoMin, RhoMax, RhoFactor                         float64
	MaxStateValue, MaxControlValue                    float64
	ActiveConstraintTolerance                         float64

	// OuterLoopUpdateType is "default" or "feedback"; see alqr.Params.
	OuterLoopUpdateType string

	MinimumTime, Infeasible     bool
	RMinimumTime, RInfeasible   float64
	ControlIntegration          string // "zoh" or "foh"
	KickoutMaxPenalty           bool
	Verbose                     bool

	Logger            *slog.Logger
	ConstraintWorkers int
}

// DefaultOptions fills every numeric default spec.md §6 names.
func DefaultOptions() Options {
	return Options{
		CostTolerance:                      1e-4,
		CostToleranceIntermediate:          1e-2,
		GradientNormTolerance:              1e-5,
		GradientNormToleranceIntermediate:  1e-2,
		ConstraintTolerance:                1e-4,
		ConstraintToleranceIntermediate:    1e-2,
		Iterations:                         30,
		IterationsInner:                    300,
		DualMax:                            1e8,
		PenaltyMax:                         1e8,
		PenaltyInitial:                     1.0,
		PenaltyScaling:                     10.0,
		PenaltyScalingNo:                   1.0,
		ConstraintDecreaseRatio:            0.25,
		RhoMin:                             1e-6,
		RhoMax:                             1e8,
		RhoFactor:                          1.6,
		MaxStateValue:                      1e8,
		MaxControlValue:                    1e8,
		ActiveConstraintTolerance:          1e-3,
		OuterLoopUpdateType:                alqr.UpdateTypeDefault,
		ControlIntegration:                 "zoh",
		KickoutMaxPenalty:                  true,
	}
}

// Stats is spec.md §6's returned stats: outer iterations, total inner
// iterations, and the per-outer history. RhoIncreases/RhoFinal are always
// populated (spec.md §7: "stats.converged, stats.c_max, and
// stats.iterations are always populated"), even when the solve ends in
// non-convergence via regularization exceeding rho_max (spec.md §8
// scenario 6).
type Stats struct {
	OuterIterations int
	TotalInner      int
	Converged       bool
	FinalState      alqr.State
	RhoIncreases    int
	RhoFinal        float64
	History         []alqr.Record
}

// Result is the façade's return value: the stripped trajectory plus
// stats.
type Result struct {
	X []traj.State
	U []traj.Control
	Stats
}

// Solve runs the full pipeline of spec.md §4 end to end: builds the
// discretization adapter and embeddings from Problem and Options, seeds
// an initial trajectory, runs the augmented Lagrangian outer loop to one
// of its terminal states, and (if the infeasible-start embedding was
// active) performs the "go feasible" transition — re-solving once more
// with the slack controls stripped — before returning.
func Solve(p *Problem, opts *Options) (*Result, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	o := resolveOptions(opts)
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}

	foh := o.ControlIntegration == "foh"
	sz := traj.NewSizes(p.StateDim, p.ControlDim, p.Knots, o.MinimumTime, o.Infeasible)

	fixedDt := p.Tf / float64(p.Knots-1)
	if fixedDt <= 0 {
		fixedDt = 1.0 / float64(p.Knots-1)
	}

	dyn, q, cs := build(p, o, sz)
	tr, shadow := seedTrajectory(p, sz, foh, fixedDt, dyn, o)

	innerP := withFixedDt(innerParams(p, o), fixedDt)
	outerP := outerParams(o)

	log.Info("solve starting", "knots", p.Knots, "minimum_time", o.MinimumTime, "infeasible", o.Infeasible)

	oc, err := alqr.Solve(tr, shadow, dyn, q, cs, p.X0, sz, innerP, outerP)
	if err != nil {
		log.Warn("solve failed", "error", err)
		return nil, err
	}
	logOutcome(log, oc)

	if o.Infeasible && oc.State == alqr.StateConverged {
		log.Info("go feasible", "event", "go_feasible")
		tr2 := embed.StripInfeasible(tr)
		sz2 := tr2.Sizes
		dyn2, q2, cs2 := build(p, optionsWithoutInfeasible(o), sz2)
		shadow2 := traj.NewTrajectory(sz2, foh)
		oc2, err := alqr.Solve(tr2, shadow2, dyn2, q2, cs2, p.X0, sz2, innerP, outerP)
		if err != nil {
			return nil, err
		}
		logOutcome(log, oc2)
		tr, oc = tr2, oc2
	}

	X, U := tr.StripEmbeddings()
	return &Result{
		X: X,
		U: U,
		Stats: Stats{
			OuterIterations: oc.OuterIterations,
			TotalInner:      oc.TotalInner,
			Converged:       oc.State == alqr.StateConverged,
			FinalState:      oc.State,
			RhoIncreases:    oc.RhoIncreases,
			RhoFinal:        oc.RhoFinal,
			History:         oc.History,
		},
	}, nil
}

func logOutcome(log *slog.Logger, oc *alqr.Outcome) {
	log.Info("outer loop finished", "state", oc.State.String(), "outer_iterations", oc.OuterIterations, "total_inner", oc.TotalInner)
	if oc.RhoIncreases > 0 {
		log.Warn("regularization increased during solve", "rho_increases", oc.RhoIncreases, "rho_final", oc.RhoFinal)
	}
	for _, rec := range oc.History {
		if rec.Diverged {
			log.Warn("rollout diverged, continuing as non-convergence", "outer", rec.Outer)
		}
		if rec.RegularizationHit {
			log.Warn("regularization exceeded rho_max, continuing as non-convergence", "outer", rec.Outer, "rho_final", rec.RhoFinal)
		}
	}
}

func validate(p *Problem) error {
	if len(p.X0) != p.StateDim || len(p.Xf) != p.StateDim {
		return ErrDimensionMismatch
	}
	if len(p.Q) != p.StateDim || len(p.Qf) != p.StateDim {
		return ErrDimensionMismatch
	}
	if len(p.R) != p.ControlDim {
		return ErrDimensionMismatch
	}
	if p.Knots < 2 {
		return ErrDimensionMismatch
	}
	return nil
}

func resolveOptions(opts *Options) Options {
	if opts == nil {
		return DefaultOptions()
	}
	return *opts
}

func build(p *Problem, o Options, sz traj.Sizes) (*embed.Dynamics, *cost.Quadratic, *constraint.Set) {
	foh := o.ControlIntegration == "foh"
	adapter := model.NewAdapter(p.Dynamics, foh)
	dyn := embed.NewDynamics(adapter, sz)

	q := &cost.Quadratic{
		Q: p.Q, R: p.R, Qf: p.Qf, Xf: p.Xf, C: p.C,
		MinimumTime: sz.MinimumTime, RMinTime: o.RMinimumTime,
		Infeasible: sz.Infeasible, RInfeasible: o.RInfeasible,
		Sizes: sz,
	}

	b := p.Constraints
	if b == nil {
		b = constraint.NewBuilder()
	}
	if sz.MinimumTime {
		b.WithMinTimeLink(constraint.NewMinTimeLink(sz.MinTimeCol()))
		if p.MinDt > 0 {
			b.Add(constraint.NewBoxControl(sz.MinTimeCol(), math.Sqrt(p.MinDt), false, sz.MM, constraint.LocationStage))
		}
		if p.MaxDt > 0 {
			b.Add(constraint.NewBoxControl(sz.MinTimeCol(), math.Sqrt(p.MaxDt), true, sz.MM, constraint.LocationStage))
		}
	}
	if sz.Infeasible {
		lo, hi := sz.InfeasibleCols()
		b.WithInfeasible(constraint.NewInfeasibleEq(lo, hi))
	}
	cs := b.Build(sz, o.ActiveConstraintTolerance)
	cs.Workers = o.ConstraintWorkers
	return dyn, q, cs
}

func seedTrajectory(p *Problem, sz traj.Sizes, foh bool, fixedDt float64, dyn *embed.Dynamics, o Options) (*traj.Trajectory, *traj.Trajectory) {
	tr := traj.NewTrajectory(sz, foh)
	shadow := traj.NewTrajectory(sz, foh)

	for k := 0; k < sz.K; k++ {
		if sz.MinimumTime {
			tr.U[k][sz.MinTimeCol()] = math.Sqrt(fixedDt)
		}
	}

	if sz.Infeasible {
		xs := embed.LinearInterpolateStates(p.X0, p.Xf, sz.K)
		for k := range xs {
			copy(tr.X[k], xs[k])
		}
		dts := make([]float64, sz.K-1)
		for k := range dts {
			dts[k] = fixedDt
		}
		embed.FillInfeasibleControls(dyn.Base, xs, tr.U, dts, sz)
		copy(tr.Dt, dts)
	}

	return tr, shadow
}

func innerParams(p *Problem, o Options) ilqr.Params {
	minDt, maxDt := p.MinDt, p.MaxDt
	if minDt <= 0 {
		minDt = 1e-6
	}
	if maxDt <= 0 {
		maxDt = 1e3
	}
	return ilqr.Params{
		CostTolerance:      o.CostToleranceIntermediate,
		GradientNormTol:    o.GradientNormToleranceIntermediate,
		MaxInnerIterations: o.IterationsInner,
		LineSearch:         ilqr.DefaultLineSearchParams(),
		RhoMin:             o.RhoMin,
		RhoMax:             o.RhoMax,
		RhoFactor:          o.RhoFactor,
		Bounds: ilqr.Bounds{
			MaxState:   o.MaxStateValue,
			MaxControl: o.MaxControlValue,
			MinDt:      minDt,
			MaxDt:      maxDt,
		},
		RMinTime: o.RMinimumTime,
	}
}

func withFixedDt(p ilqr.Params, fixedDt float64) ilqr.Params {
	p.FixedDt = fixedDt
	return p
}

func outerParams(o Options) alqr.Params {
	return alqr.Params{
		DualMax:                 o.DualMax,
		PenaltyMax:              o.PenaltyMax,
		PenaltyInitial:          o.PenaltyInitial,
		PenaltyScaling:          o.PenaltyScaling,
		PenaltyScalingNo:        o.PenaltyScalingNo,
		ConstraintDecreaseRatio: o.ConstraintDecreaseRatio,
		MaxOuterIterations:      o.Iterations,
		CostTolerance:           o.CostTolerance,
		ConstraintTolerance:     o.ConstraintTolerance,
		GradientNormTolerance:   o.GradientNormTolerance,
		KickoutMaxPenalty:       o.KickoutMaxPenalty,
		UpdateType:              o.OuterLoopUpdateType,
	}
}

func optionsWithoutInfeasible(o Options) Options {
	o.Infeasible = false
	return o
}
