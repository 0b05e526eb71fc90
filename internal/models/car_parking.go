package models

import (
	"math"

	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// CarParking is the n=4, m=2 kinematic car: state (x, y, theta, v),
// control (acceleration, steering angle). It is the vehicle spec.md §8's
// parking scenario drives into a goal pose around a circular obstacle.
type CarParking struct {
	WheelBase float64
}

// NewCarParking returns a car with a typical small-vehicle wheelbase.
func NewCarParking() CarParking {
	return CarParking{WheelBase: 2.7}
}

func (CarParking) StateDim() int   { return 4 }
func (CarParking) ControlDim() int { return 2 }

func (c CarParking) Fc(x traj.State, u traj.Control) traj.State {
	theta, v := x[2], x[3]
	accel, steer := u[0], u[1]
	return traj.State{
		v * math.Cos(theta),
		v * math.Sin(theta),
		v * math.Tan(steer) / c.WheelBase,
		accel,
	}
}

func (c CarParking) FcJacobian(x traj.State, u traj.Control) (A, B [][]float64) {
	theta, v := x[2], x[3]
	steer := u[1]
	s, co := math.Sin(theta), math.Cos(theta)
	tanSteer := math.Tan(steer)
	sec2 := 1.0 / (math.Cos(steer) * math.Cos(steer))

	A = [][]float64{
		{0, 0, -v * s, co},
		{0, 0, v * co, s},
		{0, 0, 0, tanSteer / c.WheelBase},
		{0, 0, 0, 0},
	}
	B = [][]float64{
		{0, 0},
		{0, 0},
		{0, v * sec2 / c.WheelBase},
		{1, 0},
	}
	return
}

func (CarParking) InitialState() traj.State { return traj.State{0, 0, 0, 0} }
func (CarParking) Goal() traj.State          { return traj.State{10, 0, 0, 0} }

// Obstacle is a circular keep-out region; ObstacleConstraint wraps it as
// an inequality g(x) = r^2 - (x-cx)^2 - (y-cy)^2 <= 0, the built-in general
// constraint spec.md §8 scenario 3 ("circular-obstacle inequality") calls
// for.
type Obstacle struct {
	CX, CY, Radius float64
}

// ObstacleConstraint builds the stage inequality keeping the car's (x,y)
// outside the circle.
func ObstacleConstraint(o Obstacle) *constraint.General {
	eval := func(x traj.State, u traj.Control, out []float64) {
		dx, dy := x[0]-o.CX, x[1]-o.CY
		out[0] = o.Radius*o.Radius - dx*dx - dy*dy
	}
	jac := func(x traj.State, u traj.Control, jx, ju [][]float64) {
		dx, dy := x[0]-o.CX, x[1]-o.CY
		jx[0][0] = -2 * dx
		jx[0][1] = -2 * dy
	}
	return constraint.NewGeneral(constraint.SenseInequality, constraint.LocationStage, constraint.VariableState, 1, traj.GroupStateIneq, eval, jac)
}
