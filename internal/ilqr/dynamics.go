// Package ilqr implements the inner iterative-LQR solver of spec.md §4.4
// through §4.7: forward rollout, backward Riccati pass with
// regularization, line search, and the regularization schedule. Grounded
// on the fixed-step integrator structure of the teacher's
// internal/integrators package and the gain-application idiom of
// internal/control/lqr.go, generalized from a single closed-loop gain to
// the full Riccati recursion.
package ilqr

import "github.com/arnewlabs/trajopt/internal/traj"

// Dynamics is the subset of model.Adapter the core needs: a discretized
// step and its Jacobians, already accounting for any minimum-time dt(u)
// dependency in the control Jacobian column (spec.md §4.10: "Jacobians Fd
// depend on dt, so the control Jacobian column for m̄ is provided
// analytically by the adapter").
type Dynamics interface {
	Fd(x traj.State, u traj.Control, dt float64) traj.State
	FdFoh(x traj.State, u, uNext traj.Control, dt float64) traj.State
	Jacobian(x traj.State, u traj.Control, dt float64) (A, B [][]float64)
	StateDim() int
	ControlDim() int // plant control dim (m), not mm
}
