package models

import (
	"math"
	"testing"

	"github.com/arnewlabs/trajopt/internal/traj"
)

func TestDoubleIntegratorDimensions(t *testing.T) {
	var d DoubleIntegrator
	if d.StateDim() != 2 || d.ControlDim() != 1 {
		t.Fatalf("expected (2,1), got (%d,%d)", d.StateDim(), d.ControlDim())
	}
}

func TestDoubleIntegratorJacobianMatchesFc(t *testing.T) {
	var d DoubleIntegrator
	A, B := d.FcJacobian(traj.State{1, 2}, traj.Control{3})
	gotA, gotB := centralDifferenceJacobian(wrap{d}, traj.State{1, 2}, traj.Control{3})
	assertClose(t, A, gotA, 1e-6)
	assertClose(t, B, gotB, 1e-6)
}

func TestPendulumEquilibrium(t *testing.T) {
	p := NewPendulum()
	p.Damping = 0

	dx := p.Fc(traj.State{0, 0}, traj.Control{0})
	if math.Abs(dx[0]) > 1e-10 || math.Abs(dx[1]) > 1e-10 {
		t.Fatalf("expected zero derivative at hanging equilibrium, got %v", dx)
	}
}

func TestPendulumJacobianMatchesFc(t *testing.T) {
	p := NewPendulum()
	x, u := traj.State{0.3, -0.1}, traj.Control{0.2}
	A, B := p.FcJacobian(x, u)
	gotA, gotB := centralDifferenceJacobian(wrap{p}, x, u)
	assertClose(t, A, gotA, 1e-5)
	assertClose(t, B, gotB, 1e-5)
}

func TestCartPoleDimensions(t *testing.T) {
	c := NewCartPole()
	if c.StateDim() != 4 || c.ControlDim() != 1 {
		t.Fatalf("expected (4,1), got (%d,%d)", c.StateDim(), c.ControlDim())
	}
}

func TestCarParkingJacobianMatchesFc(t *testing.T) {
	c := NewCarParking()
	x, u := traj.State{1, 2, 0.4, 1.5}, traj.Control{0.1, 0.05}
	A, B := c.FcJacobian(x, u)
	gotA, gotB := centralDifferenceJacobian(wrap{c}, x, u)
	assertClose(t, A, gotA, 1e-4)
	assertClose(t, B, gotB, 1e-4)
}

func TestObstacleConstraintSignsAwayFromCenter(t *testing.T) {
	o := Obstacle{CX: 5, CY: 5, Radius: 1}
	c := ObstacleConstraint(o)
	out := make([]float64, 1)

	c.Evaluate(traj.State{5, 5, 0, 0}, nil, out)
	if out[0] <= 0 {
		t.Fatalf("expected violation at the obstacle center, got %f", out[0])
	}

	c.Evaluate(traj.State{50, 50, 0, 0}, nil, out)
	if out[0] >= 0 {
		t.Fatalf("expected satisfaction far from the obstacle, got %f", out[0])
	}
}

// wrap adapts a model.Dynamics-shaped value (which all of this package's
// models implement) to the smaller continuousModel interface
// centralDifferenceJacobian wants, so tests can cross-check the analytic
// Jacobians against the same numerical routine CartPole uses internally.
type wrap struct {
	m interface {
		StateDim() int
		ControlDim() int
		Fc(traj.State, traj.Control) traj.State
	}
}

func (w wrap) StateDim() int   { return w.m.StateDim() }
func (w wrap) ControlDim() int { return w.m.ControlDim() }
func (w wrap) Fc(x traj.State, u traj.Control) traj.State { return w.m.Fc(x, u) }

func assertClose(t *testing.T, want, got [][]float64, tol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("row count mismatch: want %d got %d", len(want), len(got))
	}
	for i := range want {
		if len(want[i]) != len(got[i]) {
			t.Fatalf("row %d col count mismatch: want %d got %d", i, len(want[i]), len(got[i]))
		}
		for j := range want[i] {
			if math.Abs(want[i][j]-got[i][j]) > tol {
				t.Fatalf("[%d][%d]: want %g got %g", i, j, want[i][j], got[i][j])
			}
		}
	}
}
