package ilqr

import (
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/cost"
	"github.com/arnewlabs/trajopt/internal/embed"
	"github.com/arnewlabs/trajopt/internal/linalg"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// ValueFunction holds the backward-pass outputs: the Riccati
// Hessian/gradient S_k,s_k and the feedforward/feedback gains d_k,K_k at
// every knot, per spec.md §4.5.
type ValueFunction struct {
	S [][][]float64 // [k][n][n]
	s [][]float64   // [k][n]
	D [][]float64   // [k][mm] feedforward
	K [][][]float64 // [k][mm][n] feedback

	DeltaV float64 // signed predicted cost change, Σ d^TQu + ½d^TQuuD (≤0 for a descent direction)
}

// BackwardPassResult reports whether the pass completed or needs a rho
// increase and retry, per spec.md §4.5/§7.
type BackwardPassResult struct {
	OK          bool
	RhoIncrease bool
}

// BackwardPass runs the Riccati recursion of spec.md §4.5 over the
// current trajectory. dyn supplies (A,B) at each knot; q is the base
// quadratic cost; cs is the constraint set (already evaluated and
// Jacobian-assembled for this trajectory); jac holds the constraint
// Jacobians; rMinTime gains the minimum-time cost term.
func BackwardPass(tr *traj.Trajectory, dyn *embed.Dynamics, q *cost.Quadratic, cs *constraint.Set, jac *constraint.Jacobians, rho, rMinTime float64) (*ValueFunction, BackwardPassResult) {
	sz := tr.Sizes
	n, mm := sz.N, sz.MM
	numInterior := sz.K - 1

	vf := &ValueFunction{
		S: make([][][]float64, sz.K),
		s: make([][]float64, sz.K),
		D: make([][]float64, numInterior),
		K: make([][][]float64, numInterior),
	}

	// Terminal: S_N = Q̃f + Cx_N^T Iμ_N Cx_N; s_N = q̃f + Cx_N^T(Iμ_N c_N + λ_N).
	term := q.ExpandTerminal(tr.X[sz.K-1])
	SN := term.Qxx
	sN := term.Qx
	for g := traj.Group(0); g < 4; g++ {
		rows := cs.Terminal.Rows(g)
		if rows == 0 {
			continue
		}
		Cx := jac.TerminalJx[g][0]
		weighted := make([]float64, rows)
		for j := 0; j < rows; j++ {
			weighted[j] = cs.Terminal.IMu(g, 0, j)*cs.Terminal.C[g][0][j] + cs.Terminal.Lambda[g][0][j]
		}
		addInPlace(SN, weightedCTC(Cx, cs.Terminal, g, 0, rows, n))
		addVecInPlace(sN, matTVec(Cx, weighted, rows, n))
	}
	vf.S[sz.K-1] = SN
	vf.s[sz.K-1] = sN

	result := BackwardPassResult{OK: true}

	for k := numInterior - 1; k >= 0; k-- {
		Sp1, sp1 := vf.S[k+1], vf.s[k+1]

		var Qxx, Quu, Qux [][]float64
		var Qx, Qu []float64

		if tr.Foh {
			Kp1 := zeros(mm, n)
			Dp1 := make([]float64, mm)
			if k < numInterior-1 {
				Kp1 = vf.K[k+1]
				Dp1 = vf.D[k+1]
			}
			var ok2 bool
			Qxx, Quu, Qux, Qx, Qu, ok2 = fohQFunction(tr, dyn, q, cs, jac, k, Sp1, sp1, Kp1, Dp1, rMinTime, n, mm)
			if !ok2 {
				result.OK = false
				result.RhoIncrease = true
				return vf, result
			}
		} else {
			A, B := dyn.Jacobian(tr.X[k], tr.U[k], tr.Dt[k])
			e := q.Expand(tr.X[k], tr.U[k], tr.Dt[k])
			embed.AddMinTimeCostTerms(&e, tr.U[k], sz, rMinTime)

			addConstraintPenalty(&e, cs, jac, k, n, mm)

			Qx = make([]float64, n)
			copy(Qx, e.Qx)
			addVecInPlace(Qx, matTVec(A, sp1, n, n))

			Qu = make([]float64, mm)
			copy(Qu, e.Ru)
			addVecInPlace(Qu, matTVec(B, sp1, n, mm))

			Qxx = zeros(n, n)
			addInPlace(Qxx, e.Qxx)
			addInPlace(Qxx, matTMat(A, matMat(Sp1, A, n, n, n), n, n, n))

			Quu = zeros(mm, mm)
			addInPlace(Quu, e.Ruu)
			addInPlace(Quu, matTMat(B, matMat(Sp1, B, n, n, mm), n, mm, mm))

			Qux = zeros(mm, n)
			addInPlace(Qux, e.Hux)
			addInPlace(Qux, matTMat(B, matMat(Sp1, A, n, n, n), n, mm, n))
		}

		sym := linalg.DenseToSym(Quu)
		chol, ok := linalg.RegularizedCholesky(sym, rho)
		if !ok {
			result.OK = false
			result.RhoIncrease = true
			return vf, result
		}

		d := linalg.SolveVec(chol, Qu)
		K := linalg.SolveMat(chol, Qux, mm, n)

		QuuReg := zeros(mm, mm)
		addInPlace(QuuReg, Quu)
		for i := 0; i < mm; i++ {
			QuuReg[i][i] += rho
		}

		vf.D[k] = d
		vf.K[k] = K

		Sk := zeros(n, n)
		addInPlace(Sk, Qxx)
		KtQuuK := matTMat(K, matMat(QuuReg, K, mm, mm, n), mm, n, n)
		addInPlace(Sk, KtQuuK)
		KtQux := matTMat(K, Qux, mm, n, n)
		addInPlace(Sk, KtQux)
		addInPlace(Sk, transpose(KtQux, n, n))

		sk := make([]float64, n)
		copy(sk, Qx)
		addVecInPlace(sk, matTVec(K, matVec(QuuReg, d, mm, mm), mm, n))
		addVecInPlace(sk, matTVec(K, Qu, mm, n))
		addVecInPlace(sk, matTVec(Qux, d, mm, n))

		vf.S[k] = Sk
		vf.s[k] = sk

		vf.DeltaV += dot(d, Qu) + 0.5*quadFormMV(QuuReg, d)
	}

	return vf, result
}

// addConstraintPenalty folds the stage constraint groups' Cx^TIμCx,
// Cu^TIμCu, and the corresponding gradient terms into e, per spec.md
// §4.5's "adding per-knot penalty terms from stage/control constraints".
func addConstraintPenalty(e *cost.Expansion, cs *constraint.Set, jac *constraint.Jacobians, k, n, mm int) {
	for g := traj.Group(0); g < 4; g++ {
		rows := cs.Interior.Rows(g)
		if rows == 0 {
			continue
		}
		Cx := jac.InteriorJx[g][k]
		Cu := jac.InteriorJu[g][k]
		weighted := make([]float64, rows)
		for j := 0; j < rows; j++ {
			weighted[j] = cs.Interior.IMu(g, k, j)*cs.Interior.C[g][k][j] + cs.Interior.Lambda[g][k][j]
		}
		addInPlace(e.Qxx, weightedCTC(Cx, cs.Interior, g, k, rows, n))
		addVecInPlace(e.Qx, matTVec(Cx, weighted, rows, n))
		addInPlace(e.Ruu, weightedCTC(Cu, cs.Interior, g, k, rows, mm))
		addVecInPlace(e.Ru, matTVec(Cu, weighted, rows, mm))
	}
}

// weightedCTC returns C^T Iμ C for constraint Jacobian block C (rows x
// dim) and the arena's per-row Iμ weights.
func weightedCTC(c [][]float64, arena *traj.DualArena, g traj.Group, k, rows, dim int) [][]float64 {
	out := zeros(dim, dim)
	for j := 0; j < rows; j++ {
		w := arena.IMu(g, k, j)
		if w == 0 {
			continue
		}
		row := c[j]
		for a := 0; a < dim; a++ {
			if row[a] == 0 {
				continue
			}
			for b := 0; b < dim; b++ {
				out[a][b] += w * row[a] * row[b]
			}
		}
	}
	return out
}
