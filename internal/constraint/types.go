// Package constraint implements the typed constraint set of spec.md §4.3:
// a tagged-variant collection of stage/terminal, state/control,
// equality/inequality constraints, each with a fixed evaluate/Jacobian
// contract (spec.md §9 "Sum-typed constraints instead of duck-typed
// callables"). Grounded on the naming conventions of
// other_examples/viamrobotics-rdk__constraint_handler.go and the
// Lagrangian/active-set notation of curioloop-optimizer/slsqp/solver.go.
package constraint

import "github.com/arnewlabs/trajopt/internal/traj"

// Kind tags which of the seven constraint variants a Constraint is.
type Kind int

const (
	KindBoxState Kind = iota
	KindBoxControl
	KindGeneralEq
	KindGeneralIneq
	KindTerminal
	KindMinTimeLink
	KindInfeasibleEq
)

// Location is stage (applies at every interior knot) or terminal (applies
// only at knot K).
type Location int

const (
	LocationStage Location = iota
	LocationTerminal
)

// Variable says whether a constraint's Jacobian has a nonzero state block,
// control block, or both (general constraints may depend on both).
type Variable int

const (
	VariableState Variable = iota
	VariableControl
	VariableBoth
)

// Sense is equality or inequality, per spec.md §3's group tagging.
type Sense int

const (
	SenseInequality Sense = iota
	SenseEquality
)

// Params carries the per-constraint penalty parameters of spec.md §4.3:
// λ_max, μ_max, μ0, and ϕ (penalty scaling on decrease).
type Params struct {
	LambdaMax float64
	MuMax     float64
	Mu0       float64
	Phi       float64
}

// DefaultParams mirror spec.md §6's numeric option defaults.
func DefaultParams() Params {
	return Params{LambdaMax: 1e8, MuMax: 1e8, Mu0: 1.0, Phi: 10.0}
}

// Constraint is one row-group of the constraint set: evaluate writes the
// current value into a preallocated slot, Jacobian writes ∂c/∂x and ∂c/∂u
// into preallocated slots, per spec.md §4.3's contract.
type Constraint interface {
	Kind() Kind
	Location() Location
	Variable() Variable
	Sense() Sense
	Dim() int
	Group() traj.Group
	Params() Params

	// Evaluate writes Dim() values into out.
	Evaluate(x traj.State, u traj.Control, out []float64)

	// Jacobian writes ∂c/∂x into jx (Dim() x n) and ∂c/∂u into ju (Dim() x
	// mm); either may be left untouched by a constraint whose Variable()
	// excludes that block (the set pre-zeros buffers once and constraints
	// only ever write their own rows, never zero).
	Jacobian(x traj.State, u traj.Control, jx, ju [][]float64)
}
