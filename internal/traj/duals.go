package traj

// Group tags one constraint row's place in the dual/penalty arena, per
// spec.md §3 "Dual/penalty state" and §9 "Arena + indices for per-knot state".
type Group int

const (
	GroupStateIneq Group = iota
	GroupControlIneq
	GroupStateEq
	GroupControlEq
	numGroups
)

func (g Group) String() string {
	switch g {
	case GroupStateIneq:
		return "state-ineq"
	case GroupControlIneq:
		return "control-ineq"
	case GroupStateEq:
		return "state-eq"
	case GroupControlEq:
		return "control-eq"
	default:
		return "unknown"
	}
}

func (g Group) isEquality() bool {
	return g == GroupStateEq || g == GroupControlEq
}

// DualArena holds, per group and knot, the flat value/Jacobian/multiplier/
// penalty/active-set rows described in spec.md §3. Rows per knot per group
// are fixed at construction; nothing is heap-allocated after that.
type DualArena struct {
	rows [numGroups]int // row count per group, per knot (may be 0)
	k    int            // number of knots this group applies to (K or K-1)

	// Per group: [knot][row]
	C      [numGroups][][]float64 // constraint value
	Lambda [numGroups][][]float64 // multiplier (λ for ineq, κ for eq)
	Mu     [numGroups][][]float64 // penalty
	Active [numGroups][][]bool    // active-set mask (ineq only; eq always true)
}

// NewDualArena allocates the arena. rows[g] is the row count for group g;
// knots[g] is how many knots carry that group (interior groups use K-1 or
// K depending on stage vs. terminal wiring upstream; this arena is generic
// over per-group knot counts via knots).
func NewDualArena(rows [numGroups]int, knots [numGroups]int, penaltyInit [numGroups]float64) *DualArena {
	a := &DualArena{rows: rows}
	for g := Group(0); g < numGroups; g++ {
		n := knots[g]
		a.C[g] = make([][]float64, n)
		a.Lambda[g] = make([][]float64, n)
		a.Mu[g] = make([][]float64, n)
		a.Active[g] = make([][]bool, n)
		for k := 0; k < n; k++ {
			a.C[g][k] = make([]float64, rows[g])
			a.Lambda[g][k] = make([]float64, rows[g])
			a.Active[g][k] = make([]bool, rows[g])
			mu := make([]float64, rows[g])
			for j := range mu {
				mu[j] = penaltyInit[g]
				if g.isEquality() {
					a.Active[g][k][j] = true
				}
			}
			a.Mu[g][k] = mu
		}
	}
	return a
}

// Rows returns the row count for group g.
func (a *DualArena) Rows(g Group) int { return a.rows[g] }

// UpdateActiveSet sets a[j] = (c[j] > -tol) || (lambda[j] > 0) for
// inequality groups, per spec.md §4.3 "update_active_set". Equality groups
// are always fully active and are left untouched.
func (a *DualArena) UpdateActiveSet(g Group, tol float64) {
	if g.isEquality() {
		return
	}
	for k := range a.C[g] {
		c, lam, act := a.C[g][k], a.Lambda[g][k], a.Active[g][k]
		for j := range c {
			act[j] = c[j] > -tol || lam[j] > 0
		}
	}
}

// IMu returns a[j]*mu[j] for row j at knot k, group g — the diagonal entry
// of Iμ = diag(a ⊙ μ) spec.md §3 describes.
func (a *DualArena) IMu(g Group, k, j int) float64 {
	if a.Active[g][k][j] {
		return a.Mu[g][k][j]
	}
	return 0
}

// CostContribution returns Σ ½ cᵀIμc + λᵀc over all rows at knot k for
// group g, per spec.md §4.3 "cost_contribution".
func (a *DualArena) CostContribution(g Group, k int) float64 {
	c, lam := a.C[g][k], a.Lambda[g][k]
	total := 0.0
	for j := range c {
		iMu := a.IMu(g, k, j)
		total += 0.5*iMu*c[j]*c[j] + lam[j]*c[j]
	}
	return total
}

// MaxViolation returns max_j |a[j]*c[j]| for inequality groups (only the
// active rows count toward violation) or max_j |c[j]| for equality groups,
// at knot k — the per-knot, per-group quantity spec.md §4.8 step 2 maxes
// over to form c_max.
func (a *DualArena) MaxViolation(g Group, k int) float64 {
	c := a.C[g][k]
	m := 0.0
	for j := range c {
		v := c[j]
		if !g.isEquality() && !a.Active[g][k][j] {
			continue
		}
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

// MaxPenalty returns max μ over every row/knot in the arena.
func (a *DualArena) MaxPenalty() float64 {
	m := 0.0
	for g := Group(0); g < numGroups; g++ {
		for _, row := range a.Mu[g] {
			for _, v := range row {
				if v > m {
					m = v
				}
			}
		}
	}
	return m
}
