package constraint

import "github.com/arnewlabs/trajopt/internal/traj"

// Box is a one-sided bound on a single state or control component,
// realized as a built-in constraint per spec.md §4.3 ("Box constraints on
// state/control are realized as built-in constraints"). Decision recorded
// in DESIGN.md: one row per bound side, not a single vector constraint
// (Open Question 1).
type Box struct {
	kind     Kind // KindBoxState or KindBoxControl
	loc      Location
	idx      int     // which state/control component
	bound    float64 // the bound value
	upper    bool    // true: c = x[idx]-bound <= 0; false: c = bound-x[idx] <= 0
	dim      int     // state or control dimension, for Jacobian sizing
	params   Params
	groupTag traj.Group
}

// NewBoxState builds g(x) = x[idx]-hi <= 0 (upper=true) or lo-x[idx] <= 0
// (upper=false).
func NewBoxState(idx int, bound float64, upper bool, stateDim int, loc Location) *Box {
	g := traj.GroupStateIneq
	return &Box{kind: KindBoxState, loc: loc, idx: idx, bound: bound, upper: upper, dim: stateDim, params: DefaultParams(), groupTag: g}
}

// NewBoxControl builds the control-space analog of [NewBoxState].
func NewBoxControl(idx int, bound float64, upper bool, controlDim int, loc Location) *Box {
	return &Box{kind: KindBoxControl, loc: loc, idx: idx, bound: bound, upper: upper, dim: controlDim, params: DefaultParams(), groupTag: traj.GroupControlIneq}
}

func (b *Box) Kind() Kind         { return b.kind }
func (b *Box) Location() Location { return b.loc }
func (b *Box) Variable() Variable {
	if b.kind == KindBoxState {
		return VariableState
	}
	return VariableControl
}
func (b *Box) Sense() Sense        { return SenseInequality }
func (b *Box) Dim() int            { return 1 }
func (b *Box) Group() traj.Group   { return b.groupTag }
func (b *Box) Params() Params      { return b.params }
func (b *Box) SetParams(p Params)  { b.params = p }

func (b *Box) Evaluate(x traj.State, u traj.Control, out []float64) {
	var v float64
	if b.kind == KindBoxState {
		v = x[b.idx]
	} else {
		v = u[b.idx]
	}
	if b.upper {
		out[0] = v - b.bound
	} else {
		out[0] = b.bound - v
	}
}

func (b *Box) Jacobian(x traj.State, u traj.Control, jx, ju [][]float64) {
	sign := 1.0
	if !b.upper {
		sign = -1.0
	}
	if b.kind == KindBoxState {
		jx[0][b.idx] = sign
	} else {
		ju[0][b.idx] = sign
	}
}

// General wraps a user-supplied evaluate/Jacobian oracle as either an
// equality or inequality row group, the non-built-in half of spec.md
// §4.3's constraint set ("general user constraints carry a Jacobian
// oracle").
type General struct {
	kind     Kind
	loc      Location
	variable Variable
	sense    Sense
	dim      int
	params   Params
	groupTag traj.Group

	EvalFn func(x traj.State, u traj.Control, out []float64)
	JacFn  func(x traj.State, u traj.Control, jx, ju [][]float64)
}

// NewGeneral builds a general equality or inequality constraint. loc
// LocationTerminal maps Kind to KindTerminal regardless of sense, since
// terminal is a location orthogonal to sense in spec.md §4.3's grouping.
func NewGeneral(sense Sense, loc Location, variable Variable, dim int, group traj.Group, evalFn func(traj.State, traj.Control, []float64), jacFn func(traj.State, traj.Control, [][]float64, [][]float64)) *General {
	kind := KindGeneralIneq
	if sense == SenseEquality {
		kind = KindGeneralEq
	}
	if loc == LocationTerminal {
		kind = KindTerminal
	}
	return &General{kind: kind, loc: loc, variable: variable, sense: sense, dim: dim, params: DefaultParams(), groupTag: group, EvalFn: evalFn, JacFn: jacFn}
}

func (g *General) Kind() Kind         { return g.kind }
func (g *General) Location() Location { return g.loc }
func (g *General) Variable() Variable { return g.variable }
func (g *General) Sense() Sense       { return g.sense }
func (g *General) Dim() int           { return g.dim }
func (g *General) Group() traj.Group  { return g.groupTag }
func (g *General) Params() Params     { return g.params }
func (g *General) SetParams(p Params) { g.params = p }

func (g *General) Evaluate(x traj.State, u traj.Control, out []float64) { g.EvalFn(x, u, out) }
func (g *General) Jacobian(x traj.State, u traj.Control, jx, ju [][]float64) {
	g.JacFn(x, u, jx, ju)
}

// MinTimeLink is the minimum-time smoothing equality
// u_k[mBar-1] - u_{k+1}[mBar-1] = 0, k < K-1, per spec.md §4.10.
type MinTimeLink struct {
	col    int
	params Params
}

// NewMinTimeLink builds the link constraint reading the √dt column at
// index col.
func NewMinTimeLink(col int) *MinTimeLink {
	return &MinTimeLink{col: col, params: DefaultParams()}
}

func (l *MinTimeLink) Kind() Kind         { return KindMinTimeLink }
func (l *MinTimeLink) Location() Location { return LocationStage }
func (l *MinTimeLink) Variable() Variable { return VariableControl }
func (l *MinTimeLink) Sense() Sense       { return SenseEquality }
func (l *MinTimeLink) Dim() int           { return 1 }
func (l *MinTimeLink) Group() traj.Group  { return traj.GroupControlEq }
func (l *MinTimeLink) Params() Params     { return l.params }

// EvaluateLink takes both u_k and u_{k+1} since this is the one constraint
// whose Jacobian spans two knots; the constraint set calls this variant
// directly rather than through the single-knot Evaluate/Jacobian contract.
func (l *MinTimeLink) EvaluateLink(uk, uNext traj.Control, out []float64) {
	out[0] = uk[l.col] - uNext[l.col]
}

func (l *MinTimeLink) Evaluate(x traj.State, u traj.Control, out []float64) {}
func (l *MinTimeLink) Jacobian(x traj.State, u traj.Control, jx, ju [][]float64) {}

// InfeasibleEq is the per-interval equality ui_k = 0 driving the
// infeasible-start slack controls to zero, per spec.md §4.9.
type InfeasibleEq struct {
	lo, hi int
	params Params
}

// NewInfeasibleEq builds the n-row equality over the slack columns [lo,hi).
func NewInfeasibleEq(lo, hi int) *InfeasibleEq {
	return &InfeasibleEq{lo: lo, hi: hi, params: DefaultParams()}
}

func (e *InfeasibleEq) Kind() Kind         { return KindInfeasibleEq }
func (e *InfeasibleEq) Location() Location { return LocationStage }
func (e *InfeasibleEq) Variable() Variable { return VariableControl }
func (e *InfeasibleEq) Sense() Sense       { return SenseEquality }
func (e *InfeasibleEq) Dim() int           { return e.hi - e.lo }
func (e *InfeasibleEq) Group() traj.Group  { return traj.GroupControlEq }
func (e *InfeasibleEq) Params() Params     { return e.params }

func (e *InfeasibleEq) Evaluate(x traj.State, u traj.Control, out []float64) {
	for i := e.lo; i < e.hi; i++ {
		out[i-e.lo] = u[i]
	}
}

func (e *InfeasibleEq) Jacobian(x traj.State, u traj.Control, jx, ju [][]float64) {
	for i := e.lo; i < e.hi; i++ {
		ju[i-e.lo][i] = 1
	}
}
