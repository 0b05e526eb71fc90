// Package cost implements the quadratic running/terminal cost and its
// first/second-order expansion, per spec.md §4.2. Grounded on the gain
// structure of the teacher's internal/control/lqr.go (quadratic-in-state
// deviation) and the Riccati cost shape in hammal-GoCBC's reconstruct
// package.
package cost

import "github.com/arnewlabs/trajopt/internal/traj"

// Quadratic is ℓ(x,u) = ½(x-xf)ᵀQ(x-xf) + ½uᵀRu + c, with a matching
// terminal cost ½(x_N-xf)ᵀQf(x_N-xf). Q, R, Qf are stored dense and
// diagonal-friendly (callers pass diag(...) as a full matrix).
type Quadratic struct {
	Q, R, Qf [][]float64
	Xf       traj.State
	C        float64

	MinimumTime bool
	RMinTime    float64 // R_mt, gains R_mt*dt per interval
	Infeasible  bool
	RInfeasible float64 // R_inf, gains ½R_inf‖ui‖² per interval

	Sizes traj.Sizes
}

// Expansion is the quadratic expansion (Q̃,R̃,H̃,q̃,r̃) of the stage cost at
// one knot, per spec.md §4.2.
type Expansion struct {
	Qxx [][]float64 // n x n
	Ruu [][]float64 // mm x mm
	Hux [][]float64 // mm x n (∂²ℓ/∂u∂x, zero for a separable quadratic cost)
	Qx  []float64   // n
	Ru  []float64   // mm
}

// TerminalExpansion is (Q̃f, q̃f) at the final knot.
type TerminalExpansion struct {
	Qxx [][]float64
	Qx  []float64
}

// basePoint returns ½(x-xf)ᵀQ(x-xf) + ½uᵀRu + c at a single point,
// unscaled by dt — the per-sample integrand both the zoh Stage and the
// foh Simpson quadrature in StageFoh evaluate at their respective knots.
func (q *Quadratic) basePoint(x traj.State, u traj.Control) float64 {
	dx := sub(x, q.Xf)
	return 0.5*quadForm(q.Q, dx) + 0.5*quadFormSlice(q.R, []float64(u)[:len(q.R)]) + q.C
}

// embeddingPenalty returns the minimum-time and infeasible-start penalty
// terms gained once per interval (R_mt*dt and ½R_inf‖ui‖²*dt), per
// spec.md §4.9/§4.10. Charged once per interval regardless of zoh/foh:
// these penalties key off u_k and dt_k directly, not the cost integrand
// sampled at Simpson points.
func (q *Quadratic) embeddingPenalty(u traj.Control, dt float64) float64 {
	val := 0.0
	if q.MinimumTime {
		val += q.RMinTime * dt
	}
	if q.Infeasible {
		lo, hi := q.Sizes.InfeasibleCols()
		ui := []float64(u)[lo:hi]
		val += 0.5 * q.RInfeasible * normSq(ui) * dt
	}
	return val
}

// Stage returns ℓ(x,u) for interval k under zoh, scaled by dt as spec.md
// §4.2 says ("scaling by dt is folded in").
func (q *Quadratic) Stage(x traj.State, u traj.Control, dt float64) float64 {
	return q.basePoint(x, u)*dt + q.embeddingPenalty(u, dt)
}

// StageFoh returns the interval cost under foh via Simpson's rule over
// the running-cost integrand, per spec.md §4.2: dt/6*(ℓ(x_k,u_k) +
// 4ℓ(xm,um) + ℓ(x_{k+1},u_{k+1})). The embedding penalties are not
// quadrature-sampled — they gain once per interval off u_k,dt_k, same as
// the zoh path.
func (q *Quadratic) StageFoh(x, xm, xNext traj.State, u, um, uNext traj.Control, dt float64) float64 {
	simpson := q.basePoint(x, u) + 4*q.basePoint(xm, um) + q.basePoint(xNext, uNext)
	return simpson*dt/6.0 + q.embeddingPenalty(u, dt)
}

// Terminal returns the terminal cost at x_N.
func (q *Quadratic) Terminal(x traj.State) float64 {
	dx := sub(x, q.Xf)
	return 0.5 * quadForm(q.Qf, dx)
}

// PointExpansion is the pure quadratic Hessian/gradient of the running
// cost at one (x,u) point, unscaled by dt and without the embedding
// penalties — the shared building block Expand (zoh) and the Simpson
// foh combiner in internal/ilqr assemble from, so the R-embedding logic
// (R padded into the full mm-wide control block) lives in one place.
type PointExpansion struct {
	Qxx [][]float64 // n x n, == q.Q always (state cost is exactly quadratic)
	Ruu [][]float64 // mm x mm, q.R embedded top-left, zero-padded
	Qx  []float64   // n
	Ru  []float64   // mm
}

// ExpandPoint returns the unscaled, embedding-free quadratic expansion at
// (x,u).
func (q *Quadratic) ExpandPoint(x traj.State, u traj.Control) PointExpansion {
	mm := q.Sizes.MM
	pe := PointExpansion{
		Qxx: q.Q,
		Ruu: make([][]float64, mm),
		Qx:  make([]float64, len(q.Q)),
		Ru:  make([]float64, mm),
	}
	for i := range pe.Ruu {
		pe.Ruu[i] = make([]float64, mm)
	}
	for i := 0; i < len(q.R); i++ {
		copy(pe.Ruu[i][:len(q.R)], q.R[i])
	}

	dx := sub(x, q.Xf)
	copy(pe.Qx, matVec(q.Q, dx))
	ru := matVec(q.R, []float64(u)[:len(q.R)])
	copy(pe.Ru, ru)
	return pe
}

// Expand returns the quadratic expansion of the stage cost at knot k
// under zoh, independent of x,u since the base cost is exactly
// quadratic (only the gradient depends on the evaluation point); dt
// scales the state/control blocks uniformly as described in spec.md
// §4.2.
func (q *Quadratic) Expand(x traj.State, u traj.Control, dt float64) Expansion {
	n := len(q.Q)
	mm := q.Sizes.MM
	pe := q.ExpandPoint(x, u)

	e := Expansion{
		Qxx: scaleMat(pe.Qxx, dt, n, n),
		Ruu: scaleMat(pe.Ruu, dt, mm, mm),
		Hux: make([][]float64, mm),
		Qx:  make([]float64, n),
		Ru:  make([]float64, mm),
	}
	for i := range e.Hux {
		e.Hux[i] = make([]float64, n)
	}
	for i := range pe.Qx {
		e.Qx[i] = pe.Qx[i] * dt
	}
	for i := range pe.Ru {
		e.Ru[i] = pe.Ru[i] * dt
	}

	if q.Infeasible {
		lo, hi := q.Sizes.InfeasibleCols()
		for i := lo; i < hi; i++ {
			e.Ruu[i][i] += q.RInfeasible * dt
			e.Ru[i] = q.RInfeasible * u[i] * dt
		}
	}
	// Minimum-time: ∂(R_mt*dt)/∂u[MinTimeCol] where dt=u[col]^2, so the
	// cost gradient w.r.t. that column is 2*R_mt*u[col] (chain rule);
	// this column's Hessian/gradient is added by the embedding layer
	// (internal/embed), which owns the dt(u) relationship.
	return e
}

// ExpandEmbeddings returns the expansion of just the once-per-interval
// infeasible-start penalty (zero base quadratic blocks), the part
// StageFoh's Simpson quadrature does not cover since that penalty keys
// off u_k,dt_k directly rather than the three sampled points. Used by
// the foh backward pass alongside the Simpson cost's own joint
// expansion; the minimum-time column's derivative is still added by
// internal/embed.AddMinTimeCostTerms, same as the zoh path.
func (q *Quadratic) ExpandEmbeddings(u traj.Control, dt float64) Expansion {
	n := len(q.Q)
	mm := q.Sizes.MM
	e := Expansion{
		Qxx: zeros(n, n),
		Ruu: zeros(mm, mm),
		Hux: zeros(mm, n),
		Qx:  make([]float64, n),
		Ru:  make([]float64, mm),
	}
	if q.Infeasible {
		lo, hi := q.Sizes.InfeasibleCols()
		for i := lo; i < hi; i++ {
			e.Ruu[i][i] += q.RInfeasible * dt
			e.Ru[i] = q.RInfeasible * u[i] * dt
		}
	}
	return e
}

func zeros(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// ExpandTerminal returns (Q̃f, q̃f) at the final knot.
func (q *Quadratic) ExpandTerminal(x traj.State) TerminalExpansion {
	dx := sub(x, q.Xf)
	return TerminalExpansion{Qxx: q.Qf, Qx: matVec(q.Qf, dx)}
}

func sub(a, b traj.State) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		bi := 0.0
		if i < len(b) {
			bi = b[i]
		}
		out[i] = a[i] - bi
	}
	return out
}

func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i := range m {
		s := 0.0
		for j := range v {
			if j < len(m[i]) {
				s += m[i][j] * v[j]
			}
		}
		out[i] = s
	}
	return out
}

func quadForm(m [][]float64, v []float64) float64 {
	mv := matVec(m, v)
	s := 0.0
	for i := range v {
		s += v[i] * mv[i]
	}
	return s
}

func quadFormSlice(m [][]float64, v []float64) float64 {
	return quadForm(m, v)
}

func normSq(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}

func scaleMat(m [][]float64, s float64, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			out[i][j] = m[i][j] * s
		}
	}
	return out
}
