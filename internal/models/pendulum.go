package models

import (
	"math"

	"github.com/arnewlabs/trajopt/internal/traj"
)

// Pendulum is the standard n=2, m=1 torque-driven pendulum: state
// (theta, omega), control (torque).
type Pendulum struct {
	Mass, Length, Gravity, Damping float64
}

// NewPendulum returns a pendulum with the usual textbook parameters.
func NewPendulum() Pendulum {
	return Pendulum{Mass: 1.0, Length: 0.5, Gravity: 9.81, Damping: 0.1}
}

func (Pendulum) StateDim() int   { return 2 }
func (Pendulum) ControlDim() int { return 1 }

func (p Pendulum) Fc(x traj.State, u traj.Control) traj.State {
	theta, omega := x[0], x[1]
	inertia := p.Mass * p.Length * p.Length
	omegaDot := (u[0] - p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) / inertia
	return traj.State{omega, omegaDot}
}

func (p Pendulum) FcJacobian(x traj.State, u traj.Control) (A, B [][]float64) {
	theta := x[0]
	inertia := p.Mass * p.Length * p.Length
	A = [][]float64{
		{0, 1},
		{-p.Gravity * math.Cos(theta) / p.Length, -p.Damping / inertia},
	}
	B = [][]float64{{0}, {1 / inertia}}
	return
}

// InitialState hangs straight down at rest; Goal is the inverted
// (upright) equilibrium, the usual swing-up task.
func (Pendulum) InitialState() traj.State { return traj.State{0, 0} }
func (Pendulum) Goal() traj.State         { return traj.State{math.Pi, 0} }
