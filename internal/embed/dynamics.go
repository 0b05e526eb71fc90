// Package embed implements the minimum-time and infeasible-start
// embeddings of spec.md §4.9/§4.10 as decorators over a base dynamics
// adapter and cost, per spec.md §9 ("Embeddings as decorators, not
// forks"): the iLQR core only ever sees a plain [ilqr.Dynamics], sized by
// [traj.Sizes].MM, and is oblivious to which embeddings are active.
package embed

import "github.com/arnewlabs/trajopt/internal/traj"

// BaseDynamics is the plant-level discretized model, e.g. *model.Adapter.
type BaseDynamics interface {
	Fd(x traj.State, u traj.Control, dt float64) traj.State
	FdFoh(x traj.State, u, uNext traj.Control, dt float64) traj.State
	Jacobian(x traj.State, u traj.Control, dt float64) (A, B [][]float64)
	JacobianFoh(x traj.State, u, uNext traj.Control, dt float64) (A, B, C [][]float64)
	StateDim() int
	ControlDim() int
}

// Dynamics wraps a BaseDynamics with the minimum-time and infeasible-start
// control columns, presenting the [ilqr.Dynamics] contract over the full
// augmented control width Sizes.MM.
type Dynamics struct {
	Base  BaseDynamics
	Sizes traj.Sizes

	// DtStep is the finite-difference step used to estimate ∂fd/∂dt for
	// the minimum-time control column (spec.md §4.10: "the control
	// Jacobian column for m̄ is provided analytically by the adapter" —
	// here "analytically" means by the embedding layer, not by
	// re-differentiating the user's model; see DESIGN.md).
	DtStep float64
}

// NewDynamics builds the embedding-aware dynamics wrapper.
func NewDynamics(base BaseDynamics, sz traj.Sizes) *Dynamics {
	return &Dynamics{Base: base, Sizes: sz, DtStep: 1e-6}
}

func (d *Dynamics) StateDim() int   { return d.Sizes.N }
func (d *Dynamics) ControlDim() int { return d.Sizes.M }

// Fd evaluates the augmented discrete map: the plant step, plus the
// infeasible-start slack added directly to the next state, per spec.md
// §4.9's "discrete dynamics equality x_{k+1} = fd(x_k,u_k,dt_k) + ui holds
// identically by construction".
func (d *Dynamics) Fd(x traj.State, u traj.Control, dt float64) traj.State {
	xNext := d.Base.Fd(x, u[:d.Sizes.M], dt)
	if d.Sizes.Infeasible {
		lo, hi := d.Sizes.InfeasibleCols()
		for i := lo; i < hi; i++ {
			xNext[i-lo] += u[i]
		}
	}
	return xNext
}

// FdFoh is the foh analog of Fd.
func (d *Dynamics) FdFoh(x traj.State, u, uNext traj.Control, dt float64) traj.State {
	xNext := d.Base.FdFoh(x, u[:d.Sizes.M], uNext[:d.Sizes.M], dt)
	if d.Sizes.Infeasible {
		lo, hi := d.Sizes.InfeasibleCols()
		for i := lo; i < hi; i++ {
			xNext[i-lo] += u[i]
		}
	}
	return xNext
}

// Jacobian returns (A,B) with B widened to Sizes.MM: the plant block from
// Base.Jacobian, a minimum-time column from a finite difference in dt
// scaled by the dt=u[col]^2 chain rule, and an identity block for the
// infeasible-start slack columns.
func (d *Dynamics) Jacobian(x traj.State, u traj.Control, dt float64) (A, B [][]float64) {
	n := d.Sizes.N
	Abase, Bbase := d.Base.Jacobian(x, u[:d.Sizes.M], dt)

	B = make([][]float64, n)
	for i := 0; i < n; i++ {
		B[i] = make([]float64, d.Sizes.MM)
		copy(B[i], Bbase[i])
	}

	if d.Sizes.MinimumTime {
		col := d.Sizes.MinTimeCol()
		h := d.DtStep
		xPlus := d.Base.Fd(x, u[:d.Sizes.M], dt+h)
		xMinus := d.Base.Fd(x, u[:d.Sizes.M], dt-h)
		chain := 2 * u[col] // d(dt)/d(u[col]) = 2*u[col]
		for i := 0; i < n; i++ {
			B[i][col] = (xPlus[i] - xMinus[i]) / (2 * h) * chain
		}
	}

	if d.Sizes.Infeasible {
		lo, _ := d.Sizes.InfeasibleCols()
		for i := 0; i < n; i++ {
			B[i][lo+i] = 1
		}
	}

	return Abase, B
}

// JacobianFoh returns the foh discrete Jacobian (A,B,C) widened to
// Sizes.MM: A,B match Jacobian exactly (the minimum-time column and
// infeasible identity block are properties of u_k, unchanged under
// foh); C = ∂x+/∂u+ is widened with its augmented columns left zero —
// FdFoh only ever reads u[:Sizes.M]/uNext[:Sizes.M] plus u's (not
// uNext's) infeasible slack, so x+ has no dependence on uNext's
// augmented columns.
func (d *Dynamics) JacobianFoh(x traj.State, u, uNext traj.Control, dt float64) (A, B, C [][]float64) {
	n := d.Sizes.N
	Abase, _, Cbase := d.Base.JacobianFoh(x, u[:d.Sizes.M], uNext[:d.Sizes.M], dt)

	_, B = d.Jacobian(x, u, dt)

	C = make([][]float64, n)
	for i := 0; i < n; i++ {
		C[i] = make([]float64, d.Sizes.MM)
		copy(C[i], Cbase[i])
	}

	return Abase, B, C
}
