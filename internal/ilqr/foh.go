package ilqr

import (
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/cost"
	"github.com/arnewlabs/trajopt/internal/embed"
	"github.com/arnewlabs/trajopt/internal/linalg"
	"github.com/arnewlabs/trajopt/internal/traj"
)

// qAccum accumulates the joint quadratic expansion of the Simpson-rule
// foh interval cost over the stacked (δx_k, δU2) perturbation, where
// δU2 = [δu_k; δu_{k+1}] (dimension 2*mm) — the three Simpson-point
// terms of spec.md §4.2 each contribute to it through their own (x,u)
// arguments' affine dependence on (δx_k, δU2).
type qAccum struct {
	Qxx, QU2x, QU2U2 [][]float64
	Qx, QU2          []float64
}

// add folds one term's contribution: H (dim x dim), grad (dim) is the
// term's own Hessian/gradient at the Simpson point, weighted by w; Jx
// (dim x n) and JU2 (dim x 2mm) are the term's argument's affine map in
// terms of (δx_k, δU2) — nil for an argument that doesn't depend on that
// half of the stacked vector.
func (acc *qAccum) add(H [][]float64, grad []float64, Jx, JU2 [][]float64, w float64, dim, n, m2 int) {
	if Jx != nil {
		HJx := matMat(H, Jx, dim, dim, n)
		addWeighted(acc.Qxx, matTMat(Jx, HJx, dim, n, n), w)
		addVecWeighted(acc.Qx, matTVec(Jx, grad, dim, n), w)
	}
	if JU2 != nil {
		HJU2 := matMat(H, JU2, dim, dim, m2)
		addWeighted(acc.QU2U2, matTMat(JU2, HJU2, dim, m2, m2), w)
		addVecWeighted(acc.QU2, matTVec(JU2, grad, dim, m2), w)
		if Jx != nil {
			HJx2 := matMat(H, Jx, dim, dim, n)
			addWeighted(acc.QU2x, matTMat(JU2, HJx2, dim, m2, n), w)
		}
	}
}

// fohQFunction assembles the standard-shaped (Qxx,Quu,Qux,Qx,Qu) Q-function
// for interval k under first-order-hold control, per spec.md §4.2/§4.5.
// u_{k+1} is a decision variable shared between interval k's Simpson-rule
// cost/dynamics and interval k+1's own stage; since the backward pass
// runs k=K-2..0, the feedback law (Kp1,Dp1) already solved for u_{k+1}
// is available and used to eliminate δu_{k+1} before collapsing to the
// (δx_k,δu_k)-only Q-function the regularized Cholesky solve consumes.
// Kp1,Dp1 should be passed as zero when interval k is the last one (its
// u_{k+1} has no further interval depending on it, so there is nothing
// to eliminate against).
func fohQFunction(
	tr *traj.Trajectory,
	dyn *embed.Dynamics,
	q *cost.Quadratic,
	cs *constraint.Set,
	jac *constraint.Jacobians,
	k int,
	Sp1 [][]float64, sp1 []float64,
	Kp1 [][]float64, Dp1 []float64,
	rMinTime float64,
	n, mm int,
) (Qxx, Quu, Qux [][]float64, Qx, Qu []float64, ok bool) {
	A, B, C := dyn.JacobianFoh(tr.X[k], tr.U[k], tr.U[k+1], tr.Dt[k])
	dt := tr.Dt[k]
	m2 := 2 * mm

	B2 := hconcat(B, C, n, mm, mm)
	P := zeros(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := 0.5 * A[i][j]
			if i == j {
				v += 0.5
			}
			P[i][j] = v
		}
	}
	Qb2 := scaleMatN(B2, 0.5, n, m2)

	halfI := zeros(mm, mm)
	for i := 0; i < mm; i++ {
		halfI[i][i] = 0.5
	}
	Um2 := hconcat(halfI, halfI, mm, mm, mm)

	idMM := identity(mm)
	zeroMM := zeros(mm, mm)
	KU2first := hconcat(idMM, zeroMM, mm, mm, mm)
	KU2second := hconcat(zeroMM, idMM, mm, mm, mm)

	xk, uk := tr.X[k], tr.U[k]
	xm, um := tr.Xm[k], traj.Control(tr.Um[k])
	x1, u1 := tr.X[k+1], tr.U[k+1]

	pt1 := q.ExpandPoint(xk, uk)
	pt2 := q.ExpandPoint(xm, um)
	pt3 := q.ExpandPoint(x1, u1)
	Qm := pt1.Qxx
	Rm := pt1.Ruu

	acc := &qAccum{
		Qxx:   zeros(n, n),
		QU2x:  zeros(m2, n),
		QU2U2: zeros(m2, m2),
		Qx:    make([]float64, n),
		QU2:   make([]float64, m2),
	}

	idN := identity(n)
	// point 1: (x_k,u_k), weight 1.
	acc.add(Qm, pt1.Qx, idN, nil, 1, n, n, m2)
	acc.add(Rm, pt1.Ru, nil, KU2first, 1, mm, n, m2)
	// point 3: (x_{k+1},u_{k+1}), weight 1.
	acc.add(Qm, pt3.Qx, A, B2, 1, n, n, m2)
	acc.add(Rm, pt3.Ru, nil, KU2second, 1, mm, n, m2)
	// point 2: (xm,um), weight 4.
	acc.add(Qm, pt2.Qx, P, Qb2, 4, n, n, m2)
	acc.add(Rm, pt2.Ru, nil, Um2, 4, mm, n, m2)

	scale := dt / 6.0
	scaleInPlace(acc.Qxx, scale)
	scaleInPlace(acc.QU2x, scale)
	scaleInPlace(acc.QU2U2, scale)
	scaleVecInPlace(acc.Qx, scale)
	scaleVecInPlace(acc.QU2, scale)

	// Value-function propagation (not part of the interval quadrature):
	// the usual A^TSA/B2^TSB2 terms, generalized from B to B2=[B|C].
	addWeighted(acc.Qxx, matTMat(A, matMat(Sp1, A, n, n, n), n, n, n), 1)
	addWeighted(acc.QU2x, matTMat(B2, matMat(Sp1, A, n, n, n), n, m2, n), 1)
	addWeighted(acc.QU2U2, matTMat(B2, matMat(Sp1, B2, n, n, m2), n, m2, m2), 1)
	addVecWeighted(acc.Qx, matTVec(A, sp1, n, n), 1)
	addVecWeighted(acc.QU2, matTVec(B2, sp1, n, m2), 1)

	// Embeddings and constraint penalty apply to u_k only (the first mm
	// block of U2), same as the zoh path.
	eEmb := q.ExpandEmbeddings(uk, dt)
	embed.AddMinTimeCostTerms(&eEmb, uk, tr.Sizes, rMinTime)
	addBlock(acc.QU2U2, eEmb.Ruu, 0, 0)
	addVecBlock(acc.QU2, eEmb.Ru, 0)

	ePen := &cost.Expansion{Qxx: zeros(n, n), Ruu: zeros(mm, mm), Hux: zeros(mm, n), Qx: make([]float64, n), Ru: make([]float64, mm)}
	addConstraintPenalty(ePen, cs, jac, k, n, mm)
	addInPlace(acc.Qxx, ePen.Qxx)
	addVecInPlace(acc.Qx, ePen.Qx)
	addBlock(acc.QU2U2, ePen.Ruu, 0, 0)
	addVecBlock(acc.QU2, ePen.Ru, 0)

	// Eliminate δu_{k+1}: its own already-solved feedback law is
	// δu_{k+1} = K_{k+1}δx_{k+1} + d_{k+1}, and δx_{k+1}=Aδx_k+Bδu_k+Cδu_{k+1}
	// (this interval's own dynamics), so
	//   (I - K_{k+1}C) δu_{k+1} = K_{k+1}A δx_k + K_{k+1}B δu_k + d_{k+1}.
	KC := matMat(Kp1, C, mm, n, mm)
	M := zeros(mm, mm)
	for i := 0; i < mm; i++ {
		for j := 0; j < mm; j++ {
			v := -KC[i][j]
			if i == j {
				v += 1
			}
			M[i][j] = v
		}
	}
	KA := matMat(Kp1, A, mm, n, n)
	KB := matMat(Kp1, B, mm, n, mm)
	rhs := hconcat3(KA, KB, colVec(Dp1), mm, n, mm, 1)
	sol, solved := linalg.SolveGeneral(M, rhs, mm, n+mm+1)
	if !solved {
		return nil, nil, nil, nil, nil, false
	}
	F := subCols(sol, mm, 0, n)
	G := subCols(sol, mm, n, mm)
	h := colOf(sol, n+mm, mm)

	nv := n + mm
	// S maps v=[δx_k;δu_k] to δU2=[δu_k;δu_{k+1}]=Sv+b.
	S := zeros(m2, nv)
	for i := 0; i < mm; i++ {
		S[i][n+i] = 1
	}
	setBlock(S, F, mm, 0)
	setBlock(S, G, mm, n)
	b := make([]float64, m2)
	copy(b[mm:], h)

	// Full system over w=[δx_k;δU2] (n+m2 dim): substitute
	// w = Sfull*v + bfull, where Sfull leaves δx_k untouched and maps
	// δU2's block through S, then Hnew=Sfull^T H Sfull, gnew=Sfull^T(g+H*bfull).
	Hbig := zeros(n+m2, n+m2)
	setBlock(Hbig, acc.Qxx, 0, 0)
	setBlock(Hbig, transpose(acc.QU2x, m2, n), 0, n)
	setBlock(Hbig, acc.QU2x, n, 0)
	setBlock(Hbig, acc.QU2U2, n, n)
	gbig := make([]float64, n+m2)
	copy(gbig[:n], acc.Qx)
	copy(gbig[n:], acc.QU2)

	Sfull := zeros(n+m2, nv)
	for i := 0; i < n; i++ {
		Sfull[i][i] = 1
	}
	setBlock(Sfull, S, n, 0)
	bfull := make([]float64, n+m2)
	copy(bfull[n:], b)

	Hb := matVec(Hbig, bfull, n+m2, n+m2)
	addVecInPlace(Hb, gbig)
	gnew := matTVec(Sfull, Hb, n+m2, nv)
	Hnew := matTMat(Sfull, matMat(Hbig, Sfull, n+m2, n+m2, nv), n+m2, nv, nv)

	Qxx = subMat(Hnew, 0, 0, n, n)
	Qux = subMat(Hnew, n, 0, mm, n)
	Quu = subMat(Hnew, n, n, mm, mm)
	Qx = gnew[:n]
	Qu = gnew[n:]
	return Qxx, Quu, Qux, Qx, Qu, true
}
