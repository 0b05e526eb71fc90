// Package models bundles a handful of example dynamics for building a
// [solver] Problem quickly, grounded on the teacher's internal/physics
// model zoo (one file per system, a struct holding the physical
// parameters, Fc/FcJacobian in closed form where practical).
package models

import "github.com/arnewlabs/trajopt/internal/traj"

// DoubleIntegrator is the textbook n=2, m=1 linear system: position and
// velocity, driven by an acceleration input.
type DoubleIntegrator struct{}

func (DoubleIntegrator) StateDim() int   { return 2 }
func (DoubleIntegrator) ControlDim() int { return 1 }

func (DoubleIntegrator) Fc(x traj.State, u traj.Control) traj.State {
	return traj.State{x[1], u[0]}
}

func (DoubleIntegrator) FcJacobian(x traj.State, u traj.Control) (A, B [][]float64) {
	A = [][]float64{{0, 1}, {0, 0}}
	B = [][]float64{{0}, {1}}
	return
}

// InitialState and Goal give the canonical "drive to rest at the origin"
// boundary conditions used by the double-integrator scenario.
func (DoubleIntegrator) InitialState() traj.State { return traj.State{-1, 0} }
func (DoubleIntegrator) Goal() traj.State         { return traj.State{0, 0} }
