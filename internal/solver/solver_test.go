package solver

import (
	"math"
	"testing"

	"github.com/arnewlabs/trajopt/internal/models"
	"github.com/arnewlabs/trajopt/internal/traj"
)

func diag(vals ...float64) [][]float64 {
	m := make([][]float64, len(vals))
	for i, v := range vals {
		m[i] = make([]float64, len(vals))
		m[i][i] = v
	}
	return m
}

// riccatiCost computes the exact finite-horizon LQR cost-to-go
// x0^T S_0 x0 for the discrete linear system x+ = Ax + Bu under running
// cost 1/2 x'Qx + 1/2 u'Ru and terminal cost 1/2 x'Qfx, the closed-form
// spec.md §8 scenario 1 checks the solver's cost against. A,B,Q,R,Qf are
// 2x2/2x1/1x1 here but written generically over n,m for clarity.
func riccatiCost(a, b, q, r, qf [][]float64, x0 []float64, steps int) float64 {
	n := len(q)
	m := len(r)

	s := cloneMat(qf)
	for k := 0; k < steps; k++ {
		// K = (R + B'SB)^-1 B'SA
		bs := matTMat(b, s, n, m, n)   // m x n  (B'S)
		bsb := matMat(bs, b, m, n, m)  // m x m  (B'SB)
		bsa := matMat(bs, a, m, n, n)  // m x n  (B'SA)
		rbsb := addMat(r, bsb, m, m)
		rInv := invSmall(rbsb, m)
		k_ := matMat(rInv, bsa, m, m, n) // m x n

		// S = Q + A'SA - A'SB*K
		as := matTMat(a, s, n, n, n)
		asa := matMat(as, a, n, n, n)
		asb := matMat(as, b, n, n, m)
		asbk := matMat(asb, k_, n, m, n)
		s = addMat(q, subMat(asa, asbk, n, n), n, n)
	}

	sx := matVec(s, x0)
	total := 0.0
	for i := range x0 {
		total += x0[i] * sx[i]
	}
	return 0.5 * total
}

func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i := range m {
		sum := 0.0
		for j := range v {
			sum += m[i][j] * v[j]
		}
		out[i] = sum
	}
	return out
}

func matMat(a, b [][]float64, rows, inner, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			sum := 0.0
			for k := 0; k < inner; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func matTMat(a, b [][]float64, aRows, aCols, bCols int) [][]float64 {
	out := make([][]float64, aCols)
	for i := 0; i < aCols; i++ {
		out[i] = make([]float64, bCols)
		for j := 0; j < bCols; j++ {
			sum := 0.0
			for k := 0; k < aRows; k++ {
				sum += a[k][i] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func addMat(a, b [][]float64, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

func subMat(a, b [][]float64, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = a[i][j] - b[i][j]
		}
	}
	return out
}

func cloneMat(a [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for i := range a {
		out[i] = append([]float64(nil), a[i]...)
	}
	return out
}

// invSmall inverts a 1x1 or 2x2 matrix; the only sizes this test needs.
func invSmall(a [][]float64, n int) [][]float64 {
	if n == 1 {
		return [][]float64{{1.0 / a[0][0]}}
	}
	det := a[0][0]*a[1][1] - a[0][1]*a[1][0]
	return [][]float64{
		{a[1][1] / det, -a[0][1] / det},
		{-a[1][0] / det, a[0][0] / det},
	}
}

// TestSolveDoubleIntegratorUnconstrained is spec.md §8 scenario 1: the
// linear double integrator, unconstrained, with Q=0 so the sole objective
// is driving to rest under a terminal penalty. Expect the final state
// within 1e-3 of the origin and the solver's reported cost within 1% of
// the closed-form discrete LQR cost-to-go.
func TestSolveDoubleIntegratorUnconstrained(t *testing.T) {
	const (
		dt = 0.1
		n  = 51 // knots
	)
	a := [][]float64{{1, dt}, {0, 1}}
	b := [][]float64{{0.5 * dt * dt}, {dt}}
	q := diag(0, 0)
	r := diag(0.1)
	qf := diag(100, 100)
	x0 := []float64{1, 0}

	p := &Problem{
		StateDim:   2,
		ControlDim: 1,
		Knots:      n,
		X0:         traj.State(x0),
		Xf:         traj.State{0, 0},
		Q:          q,
		R:          r,
		Qf:         qf,
		Dynamics:   models.DoubleIntegrator{},
		Tf:         dt * float64(n-1),
	}
	opts := DefaultOptions()

	res, err := Solve(p, &opts)
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence, final state = %v", res.FinalState)
	}

	xN := res.X[len(res.X)-1]
	if xN.InfNorm() >= 1e-3 {
		t.Fatalf("final state %v not within 1e-3 of origin", xN)
	}

	gotCost := res.History[len(res.History)-1].Cost
	// The solver's running cost is scaled by dt per interval, so the
	// closed form uses Q*dt and R*dt.
	wantCost := riccatiCost(a, b, diag(0*dt, 0*dt), diag(0.1*dt), qf, x0, n-1)
	if math.Abs(gotCost-wantCost) > 0.01*math.Abs(wantCost) {
		t.Fatalf("cost %v not within 1%% of closed-form %v", gotCost, wantCost)
	}
}
