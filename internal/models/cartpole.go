package models

import (
	"math"

	"github.com/arnewlabs/trajopt/internal/traj"
)

// CartPole is the n=4, m=1 cart-and-pole: state (x, xdot, theta, thetadot),
// control (horizontal force on the cart). theta=0 is the pole hanging down.
type CartPole struct {
	CartMass, PoleMass, Length, Gravity float64
}

// NewCartPole returns a cart-pole with the usual textbook parameters.
func NewCartPole() CartPole {
	return CartPole{CartMass: 1.0, PoleMass: 0.2, Length: 0.5, Gravity: 9.81}
}

func (CartPole) StateDim() int   { return 4 }
func (CartPole) ControlDim() int { return 1 }

func (c CartPole) Fc(x traj.State, u traj.Control) traj.State {
	_, xdot, theta, thetadot := x[0], x[1], x[2], x[3]
	s, co := math.Sin(theta), math.Cos(theta)
	mt := c.CartMass + c.PoleMass

	temp := (u[0] - c.PoleMass*c.Length*thetadot*thetadot*s) / mt
	thetaddot := (-c.Gravity*s + co*temp) / (c.Length * (4.0/3.0 - c.PoleMass*co*co/mt))
	xddot := temp + c.PoleMass*c.Length*thetaddot*co/mt

	return traj.State{xdot, xddot, thetadot, thetaddot}
}

// FcJacobian uses a central finite difference over Fc: the cart-pole's
// closed-form Jacobian is a long quotient-rule expression that's easy to
// get subtly wrong by hand, and a numerical derivative of this model's own
// continuous dynamics (not the solver differentiating an opaque user
// model) is accurate to the step size it's computed at.
func (c CartPole) FcJacobian(x traj.State, u traj.Control) (A, B [][]float64) {
	return centralDifferenceJacobian(c, x, u)
}

func (CartPole) InitialState() traj.State { return traj.State{0, 0, 0, 0} }
func (CartPole) Goal() traj.State         { return traj.State{0, 0, math.Pi, 0} }
