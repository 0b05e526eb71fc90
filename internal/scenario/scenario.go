// Package scenario loads a YAML document describing a solver.Problem and
// solver.Options, the on-disk configuration analog of the teacher's
// internal/config. A scenario names a model from internal/models by
// string, the way the teacher's Config.Model dispatches GetInitState.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arnewlabs/trajopt/internal/solver"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// Document is the YAML shape scenario files use: model selection, the
// boundary-value problem, and every solver.Options knob a scenario author
// might want to pin.
type Document struct {
	Model string `yaml:"model"`

	X0 []float64 `yaml:"x0"`
	Xf []float64 `yaml:"xf"`
	Q  []float64 `yaml:"q"`  // diagonal of Q
	R  []float64 `yaml:"r"`  // diagonal of R
	Qf []float64 `yaml:"qf"` // diagonal of Qf

	Knots int     `yaml:"knots"`
	Tf    float64 `yaml:"tf"`
	MinDt float64 `yaml:"min_dt"`
	MaxDt float64 `yaml:"max_dt"`

	MinimumTime bool   `yaml:"minimum_time"`
	Infeasible  bool   `yaml:"infeasible"`
	Integration string `yaml:"control_integration"`

	Obstacle *ObstacleDoc `yaml:"obstacle,omitempty"`

	Options OptionsDoc `yaml:"options"`
}

// ObstacleDoc configures the car-parking model's circular keep-out
// region, the one built-in scenario constraint a YAML file can select
// without writing Go.
type ObstacleDoc struct {
	CX, CY, Radius float64
}

// OptionsDoc mirrors solver.Options field-for-field; zero values fall
// back to solver.DefaultOptions() at Load time.
type OptionsDoc struct {
	CostTolerance             float64 `yaml:"cost_tolerance"`
	CostToleranceIntermediate float64 `yaml:"cost_tolerance_intermediate"`

	GradientNormTolerance             float64 `yaml:"gradient_norm_tolerance"`
	GradientNormToleranceIntermediate float64 `yaml:"gradient_norm_tolerance_intermediate"`

	ConstraintTolerance             float64 `yaml:"constraint_tolerance"`
	ConstraintToleranceIntermediate float64 `yaml:"constraint_tolerance_intermediate"`

	Iterations      int `yaml:"iterations"`
	IterationsInner int `yaml:"iterations_inner"`

	DualMax                 float64 `yaml:"dual_max"`
	PenaltyMax               float64 `yaml:"penalty_max"`
	PenaltyInitial           float64 `yaml:"penalty_initial"`
	PenaltyScaling           float64 `yaml:"penalty_scaling"`
	PenaltyScalingNo         float64 `yaml:"penalty_scaling_no"`
	ConstraintDecreaseRatio  float64 `yaml:"constraint_decrease_ratio"`
	RhoMin                   float64 `yaml:"rho_min"`
	RhoMax                   float64 `yaml:"rho_max"`
	RhoFactor                float64 `yaml:"rho_factor"`
	MaxStateValue            float64 `yaml:"max_state_value"`
	MaxControlValue          float64 `yaml:"max_control_value"`
	ActiveConstraintTolerance float64 `yaml:"active_constraint_tolerance"`

	OuterLoopUpdateType string `yaml:"outer_loop_update_type"`
	RMinimumTime        float64 `yaml:"r_minimum_time"`
	RInfeasible         float64 `yaml:"r_infeasible"`
	KickoutMaxPenalty   *bool   `yaml:"kickout_max_penalty,omitempty"`
	Verbose             bool    `yaml:"verbose"`
	ConstraintWorkers   int     `yaml:"constraint_workers"`
}

// Load reads and parses a scenario file, building a solver.Problem and
// solver.Options ready to pass to solver.Solve. model must name one of
// internal/models' registered dynamics (see Registry).
func Load(path string) (*solver.Problem, *solver.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	return Build(&doc)
}

// Save serializes a Document back to YAML, the inverse of Load, for a
// CLI command that wants to snapshot a generated/modified scenario.
func Save(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build turns a parsed Document into a solver.Problem/solver.Options
// pair, resolving the named model and filling every unset option from
// solver.DefaultOptions().
func Build(doc *Document) (*solver.Problem, *solver.Options, error) {
	entry, ok := Registry[doc.Model]
	if !ok {
		return nil, nil, fmt.Errorf("scenario: unknown model %q", doc.Model)
	}

	n, m := entry.Dyn.StateDim(), entry.Dyn.ControlDim()

	x0 := entry.InitialState
	if len(doc.X0) > 0 {
		x0 = traj.State(doc.X0)
	}
	xf := entry.Goal
	if len(doc.Xf) > 0 {
		xf = traj.State(doc.Xf)
	}

	q := diag(doc.Q, n, 1.0)
	r := diag(doc.R, m, 0.1)
	qf := diag(doc.Qf, n, 10.0)

	knots := doc.Knots
	if knots == 0 {
		knots = 50
	}

	constraints := entry.Constraints(doc)

	p := &solver.Problem{
		StateDim:    n,
		ControlDim:  m,
		Knots:       knots,
		X0:          x0,
		Xf:          xf,
		Q:           q,
		R:           r,
		Qf:          qf,
		Dynamics:    entry.Dyn,
		Constraints: constraints,
		Tf:          doc.Tf,
		MinDt:       doc.MinDt,
		MaxDt:       doc.MaxDt,
	}

	opts := resolveOptions(doc)
	return p, opts, nil
}

func resolveOptions(doc *Document) *solver.Options {
	o := solver.DefaultOptions()
	d := doc.Options

	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&o.CostTolerance, d.CostTolerance)
	set(&o.CostToleranceIntermediate, d.CostToleranceIntermediate)
	set(&o.GradientNormTolerance, d.GradientNormTolerance)
	set(&o.GradientNormToleranceIntermediate, d.GradientNormToleranceIntermediate)
	set(&o.ConstraintTolerance, d.ConstraintTolerance)
	set(&o.ConstraintToleranceIntermediate, d.ConstraintToleranceIntermediate)
	set(&o.DualMax, d.DualMax)
	set(&o.PenaltyMax, d.PenaltyMax)
	set(&o.PenaltyInitial, d.PenaltyInitial)
	set(&o.PenaltyScaling, d.PenaltyScaling)
	set(&o.PenaltyScalingNo, d.PenaltyScalingNo)
	set(&o.ConstraintDecreaseRatio, d.ConstraintDecreaseRatio)
	set(&o.RhoMin, d.RhoMin)
	set(&o.RhoMax, d.RhoMax)
	set(&o.RhoFactor, d.RhoFactor)
	set(&o.MaxStateValue, d.MaxStateValue)
	set(&o.MaxControlValue, d.MaxControlValue)
	set(&o.ActiveConstraintTolerance, d.ActiveConstraintTolerance)
	set(&o.RMinimumTime, d.RMinimumTime)
	set(&o.RInfeasible, d.RInfeasible)

	if d.Iterations != 0 {
		o.Iterations = d.Iterations
	}
	if d.IterationsInner != 0 {
		o.IterationsInner = d.IterationsInner
	}
	if d.OuterLoopUpdateType != "" {
		o.OuterLoopUpdateType = d.OuterLoopUpdateType
	}
	if d.KickoutMaxPenalty != nil {
		o.KickoutMaxPenalty = *d.KickoutMaxPenalty
	}
	o.Verbose = d.Verbose
	o.ConstraintWorkers = d.ConstraintWorkers
	o.MinimumTime = doc.MinimumTime
	o.Infeasible = doc.Infeasible
	if doc.Integration != "" {
		o.ControlIntegration = doc.Integration
	}
	return &o
}

func diag(vals []float64, n int, fallback float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		v := fallback
		if i < len(vals) {
			v = vals[i]
		}
		m[i][i] = v
	}
	return m
}
