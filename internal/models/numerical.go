package models

import "github.com/arnewlabs/trajopt/internal/traj"

type continuousModel interface {
	StateDim() int
	ControlDim() int
	Fc(x traj.State, u traj.Control) traj.State
}

// centralDifferenceJacobian computes ∂fc/∂x, ∂fc/∂u by a central
// difference over m's own Fc, for models whose closed-form Jacobian isn't
// worth hand-deriving.
func centralDifferenceJacobian(m continuousModel, x traj.State, u traj.Control) (A, B [][]float64) {
	const h = 1e-6
	n, c := m.StateDim(), m.ControlDim()

	A = make([][]float64, n)
	for i := range A {
		A[i] = make([]float64, n)
	}
	B = make([][]float64, n)
	for i := range B {
		B[i] = make([]float64, c)
	}

	xp, xm := x.Clone(), x.Clone()
	for j := 0; j < n; j++ {
		xp[j] += h
		xm[j] -= h
		fp, fm := m.Fc(xp, u), m.Fc(xm, u)
		xp[j], xm[j] = x[j], x[j]
		for i := 0; i < n; i++ {
			A[i][j] = (fp[i] - fm[i]) / (2 * h)
		}
	}

	up, um := u.Clone(), u.Clone()
	for j := 0; j < c; j++ {
		up[j] += h
		um[j] -= h
		fp, fm := m.Fc(x, up), m.Fc(x, um)
		up[j], um[j] = u[j], u[j]
		for i := 0; i < n; i++ {
			B[i][j] = (fp[i] - fm[i]) / (2 * h)
		}
	}

	return
}
