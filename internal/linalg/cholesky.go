// Package linalg wraps the gonum matrix/Cholesky routines the backward
// pass uses to regularize and invert Q_uu, in the idiom
// hammal-GoCBC's reconstruct package uses for its Riccati solve
// (mat.Dense/mat.SymDense, in-place Solve/Factorize).
package linalg

import "gonum.org/v1/gonum/mat"

// RegularizedCholesky adds rho*I to a copy of sym (sym itself is left
// unchanged) and attempts a Cholesky factorization of that copy, returning
// the factorization and whether it succeeded.
// A failed factorization is the "CholeskyFailure" of spec.md §4.5/§7: the
// caller is expected to increase rho and retry.
func RegularizedCholesky(sym *mat.SymDense, rho float64) (*mat.Cholesky, bool) {
	n := sym.SymmetricDim()
	reg := mat.NewSymDense(n, nil)
	reg.CopySym(sym)
	for i := 0; i < n; i++ {
		reg.SetSym(i, i, reg.At(i, i)+rho)
	}
	var chol mat.Cholesky
	ok := chol.Factorize(reg)
	return &chol, ok
}

// SolveVec solves Quu x = -b for x (used for the feedforward gain d_k =
// -Quu^{-1} Qu, spec.md §4.5).
func SolveVec(chol *mat.Cholesky, b []float64) []float64 {
	n := len(b)
	rhs := mat.NewVecDense(n, nil)
	for i, v := range b {
		rhs.SetVec(i, -v)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, rhs); err != nil {
		panic(err) // chol was already verified to have factorized successfully
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out
}

// SolveMat solves Quu X = -B for X (used for the feedback gain
// K_k = -Quu^{-1} Qux, spec.md §4.5). rows is the row count of B (= len(b)
// per column) and cols its column count (= state dimension).
func SolveMat(chol *mat.Cholesky, b [][]float64, rows, cols int) [][]float64 {
	rhs := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rhs.Set(i, j, -b[i][j])
		}
	}
	var x mat.Dense
	if err := chol.SolveTo(&x, rhs); err != nil {
		panic(err)
	}
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = x.At(i, j)
		}
	}
	return out
}

// SolveGeneral solves M X = B for X via gonum's LU-backed general solve,
// for systems with no SPD guarantee (the foh backward pass's
// (I - K_{k+1}C) control-coupling elimination, spec.md §4.5). Returns
// ok=false if M is singular, the coupling-analog of a Cholesky failure:
// the caller should increase rho and retry rather than trust the result.
func SolveGeneral(m, b [][]float64, dim, cols int) ([][]float64, bool) {
	a := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			a.Set(i, j, m[i][j])
		}
	}
	rhs := mat.NewDense(dim, cols, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < cols; j++ {
			rhs.Set(i, j, b[i][j])
		}
	}
	var x mat.Dense
	if err := x.Solve(a, rhs); err != nil {
		return nil, false
	}
	out := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = x.At(i, j)
		}
	}
	return out, true
}

// DenseToSym packs a row-major square slice into a *mat.SymDense, reading
// only the upper triangle (the caller guarantees symmetry).
func DenseToSym(m [][]float64) *mat.SymDense {
	n := len(m)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m[i][j])
		}
	}
	return sym
}
