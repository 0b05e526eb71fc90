// Package model adapts a user-provided continuous/discrete dynamics model
// and its Jacobians to the fixed contract the iLQR core drives, in the
// idiom of the teacher's internal/integrators (scratch-buffer reuse,
// zoh/foh step functions) generalized from a fixed RK4 stepper to any
// Dynamics the caller supplies.
package model

import "github.com/arnewlabs/trajopt/internal/traj"

// Dynamics is the continuous dynamics callable a [Problem] is built from,
// per spec.md §4.1. Fc is required only for foh integration.
type Dynamics interface {
	Fc(x traj.State, u traj.Control) traj.State
	FcJacobian(x traj.State, u traj.Control) (A, B [][]float64)
	StateDim() int
	ControlDim() int
}

// Adapter discretizes a continuous [Dynamics] under zoh or foh, per
// spec.md §4.1: fd(x,u,dt) -> x+ and Fd(x,u) -> (A,B), with the foh
// variants taking u+ and returning the extra C = ∂x+/∂u+ block.
type Adapter struct {
	Dyn Dynamics
	Foh bool
}

// NewAdapter builds a discretization adapter over dyn using RK4 for zoh
// integration (teacher: internal/integrators/rk4.go) or, for foh, a
// Simpson-weighted step over fc evaluated at the start, midpoint and end
// of the interval (see FdFoh).
func NewAdapter(dyn Dynamics, foh bool) *Adapter {
	return &Adapter{Dyn: dyn, Foh: foh}
}

func (a *Adapter) StateDim() int   { return a.Dyn.StateDim() }
func (a *Adapter) ControlDim() int { return a.Dyn.ControlDim() }

// Fd advances one zoh step: x+ = rk4(x, u, dt).
func (a *Adapter) Fd(x traj.State, u traj.Control, dt float64) traj.State {
	n := a.Dyn.StateDim()
	k1 := a.Dyn.Fc(x, u)

	x2 := addScaled(x, k1, dt*0.5, n)
	k2 := a.Dyn.Fc(x2, u)

	x3 := addScaled(x, k2, dt*0.5, n)
	k3 := a.Dyn.Fc(x3, u)

	x4 := addScaled(x, k3, dt, n)
	k4 := a.Dyn.Fc(x4, u)

	out := make(traj.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		out[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

// FdFoh advances one foh step given the control at the start (u) and end
// (uNext) of the interval: fc is evaluated at the start (x,u), at a
// midpoint state with the averaged control, and at an end state, and the
// three rates are combined with Simpson weights dt/6*(1,4,1).
func (a *Adapter) FdFoh(x traj.State, u, uNext traj.Control, dt float64) traj.State {
	n := a.Dyn.StateDim()
	um := make(traj.Control, len(u))
	for i := range u {
		um[i] = 0.5 * (u[i] + uNext[i])
	}

	k1 := a.Dyn.Fc(x, u)
	xMid := addScaled(x, k1, dt*0.5, n)
	kMid := a.Dyn.Fc(xMid, um)
	xEnd := addScaled(x, kMid, dt, n)
	kEnd := a.Dyn.Fc(xEnd, uNext)

	out := make(traj.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		out[i] = x[i] + dt6*(k1[i]+4*kMid[i]+kEnd[i])
	}
	return out
}

func addScaled(x, k traj.State, s float64, n int) traj.State {
	out := make(traj.State, n)
	for i := 0; i < n; i++ {
		out[i] = x[i] + s*k[i]
	}
	return out
}

// Jacobian returns the discrete Jacobians (A,B) = ∂fd/∂(x,u), discretizing
// the continuous Jacobian with a second-order matrix exponential
// approximation rather than differentiating fd itself (automatic
// differentiation of user models is out of scope; see FcJacobian).
func (a *Adapter) Jacobian(x traj.State, u traj.Control, dt float64) (A, B [][]float64) {
	n := a.Dyn.StateDim()
	Ac, Bc := a.Dyn.FcJacobian(x, u)
	// Discretize the linearization with a matrix exponential approximated
	// to second order: Ad ≈ I + Ac*dt + (Ac*dt)^2/2, Bd ≈ Bc*dt + Ac*Bc*dt^2/2.
	A = make([][]float64, n)
	m := len(Bc[0])
	B = make([][]float64, n)
	for i := 0; i < n; i++ {
		A[i] = make([]float64, n)
		B[i] = make([]float64, m)
		for j := 0; j < n; j++ {
			v := Ac[i][j] * dt
			if i == j {
				v += 1
			}
			A[i][j] = v
		}
		for j := 0; j < m; j++ {
			B[i][j] = Bc[i][j] * dt
		}
	}
	// second-order correction
	AcAc := matMul(Ac, Ac, n, n, n)
	AcBc := matMul(Ac, Bc, n, n, m)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			A[i][j] += 0.5 * dt * dt * AcAc[i][j]
		}
		for j := 0; j < m; j++ {
			B[i][j] += 0.5 * dt * dt * AcBc[i][j]
		}
	}
	return
}

// JacobianFoh returns the foh discrete Jacobian blocks (A,B,C) =
// ∂fdFoh/∂(x,u,u+), per spec.md §4.5's "the C = ∂x+/∂u+ block foh
// coupling needs." A,B come from the zoh Jacobian evaluated at (x,u,dt)
// — a second-order-accurate approximation of the same linearization
// FdFoh uses internally, consistent with Jacobian's own "discretize the
// linearization" approach rather than differentiating the stepper
// directly. C is estimated by central finite difference over FdFoh's
// uNext argument, the same technique internal/embed.Dynamics.Jacobian
// uses for its minimum-time dt column.
func (a *Adapter) JacobianFoh(x traj.State, u, uNext traj.Control, dt float64) (A, B, C [][]float64) {
	A, B = a.Jacobian(x, u, dt)

	n := a.Dyn.StateDim()
	m := len(uNext)
	h := 1e-6
	C = make([][]float64, n)
	for i := 0; i < n; i++ {
		C[i] = make([]float64, m)
	}

	up := make(traj.Control, m)
	um := make(traj.Control, m)
	copy(up, uNext)
	copy(um, uNext)
	for j := 0; j < m; j++ {
		up[j] = uNext[j] + h
		um[j] = uNext[j] - h
		xPlus := a.FdFoh(x, u, up, dt)
		xMinus := a.FdFoh(x, u, um, dt)
		for i := 0; i < n; i++ {
			C[i][j] = (xPlus[i] - xMinus[i]) / (2 * h)
		}
		up[j] = uNext[j]
		um[j] = uNext[j]
	}
	return
}

func matMul(a, b [][]float64, ra, k, cb int) [][]float64 {
	out := make([][]float64, ra)
	for i := 0; i < ra; i++ {
		out[i] = make([]float64, cb)
		for j := 0; j < cb; j++ {
			s := 0.0
			for p := 0; p < k; p++ {
				s += a[i][p] * b[p][j]
			}
			out[i][j] = s
		}
	}
	return out
}
