package constraint

import (
	"runtime"
	"sync"

	"github.com/arnewlabs/trajopt/internal/traj"
)

type layoutEntry struct {
	c      Constraint
	offset int
}

// Set is the typed collection of constraints of spec.md §4.3, bound to a
// pair of [traj.DualArena]s: Interior (knots 0..K-2) and Terminal (the
// single final knot). Row layout is fixed at construction so evaluation
// and Jacobian assembly never allocate, per spec.md §9 "Arena + indices".
type Set struct {
	Interior *traj.DualArena
	Terminal *traj.DualArena

	Sizes     traj.Sizes
	ActiveTol float64
	Workers   int // 0 or 1 = sequential; >1 chunks knots across goroutines

	interiorLayout map[traj.Group][]layoutEntry
	terminalLayout map[traj.Group][]layoutEntry

	link       *MinTimeLink
	linkOffset int // row offset of the link constraint within GroupControlEq
	infeasible *InfeasibleEq
	infOffset  int
}

// Builder accumulates constraints before Build() fixes the arena layout.
type Builder struct {
	stage      []Constraint
	terminal   []Constraint
	link       *MinTimeLink
	infeasible *InfeasibleEq
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Add(c Constraint) *Builder {
	if c.Location() == LocationTerminal {
		b.terminal = append(b.terminal, c)
	} else {
		b.stage = append(b.stage, c)
	}
	return b
}

func (b *Builder) WithMinTimeLink(l *MinTimeLink) *Builder {
	b.link = l
	return b
}

func (b *Builder) WithInfeasible(e *InfeasibleEq) *Builder {
	b.infeasible = e
	return b
}

// Build fixes the row layout and allocates the Interior/Terminal arenas.
func (b *Builder) Build(sz traj.Sizes, activeTol float64) *Set {
	s := &Set{Sizes: sz, ActiveTol: activeTol}
	s.interiorLayout, s.Interior = layout(b.stage, b.link, b.infeasible, sz.K-1)
	s.terminalLayout, s.Terminal = layout(b.terminal, nil, nil, 1)
	s.link = b.link
	s.infeasible = b.infeasible
	if b.link != nil {
		s.linkOffset = rowOffsetOf(s.interiorLayout[traj.GroupControlEq], b.link)
	}
	if b.infeasible != nil {
		s.infOffset = rowOffsetOf(s.interiorLayout[traj.GroupControlEq], b.infeasible)
	}
	return s
}

func rowOffsetOf(entries []layoutEntry, c Constraint) int {
	for _, e := range entries {
		if e.c == c {
			return e.offset
		}
	}
	return 0
}

func layout(cs []Constraint, link *MinTimeLink, infeasible *InfeasibleEq, numKnots int) (map[traj.Group][]layoutEntry, *traj.DualArena) {
	byGroup := map[traj.Group][]Constraint{}
	for _, c := range cs {
		byGroup[c.Group()] = append(byGroup[c.Group()], c)
	}
	if link != nil {
		byGroup[traj.GroupControlEq] = append(byGroup[traj.GroupControlEq], link)
	}
	if infeasible != nil {
		byGroup[traj.GroupControlEq] = append(byGroup[traj.GroupControlEq], infeasible)
	}

	var rows [4]int
	var knots [4]int
	var mu0 [4]float64
	out := map[traj.Group][]layoutEntry{}
	for g := traj.Group(0); g < 4; g++ {
		offset := 0
		var entries []layoutEntry
		for _, c := range byGroup[g] {
			entries = append(entries, layoutEntry{c: c, offset: offset})
			offset += c.Dim()
			mu0[g] = c.Params().Mu0
		}
		out[g] = entries
		rows[g] = offset
		if offset > 0 {
			knots[g] = numKnots
		}
	}
	return out, traj.NewDualArena(rows, knots, mu0)
}

// EvaluateAll fills every constraint value into the arena, per spec.md
// §4.3's evaluate_all(Z). Interior knots (0..K-2) read (X[k],U[k]);
// the terminal knot reads X[K-1] only.
func (s *Set) EvaluateAll(tr *traj.Trajectory) {
	numInterior := s.Sizes.K - 1
	eval := func(k int) {
		for g, entries := range s.interiorLayout {
			for _, e := range entries {
				if isSpecial(e.c) {
					continue
				}
				e.c.Evaluate(tr.X[k], tr.U[k], s.Interior.C[g][k][e.offset:e.offset+e.c.Dim()])
			}
		}
	}
	s.parallelKnots(numInterior, eval)

	if s.link != nil {
		for k := 0; k < numInterior-1; k++ {
			s.link.EvaluateLink(tr.U[k], tr.U[k+1], s.Interior.C[traj.GroupControlEq][k][s.linkOffset:s.linkOffset+1])
		}
		// no link constraint spans the last interior knot; leave its row at 0.
		s.Interior.C[traj.GroupControlEq][numInterior-1][s.linkOffset] = 0
	}
	if s.infeasible != nil {
		for k := 0; k < numInterior; k++ {
			s.infeasible.Evaluate(tr.X[k], tr.U[k], s.Interior.C[traj.GroupControlEq][k][s.infOffset:s.infOffset+s.infeasible.Dim()])
		}
	}

	for g, entries := range s.terminalLayout {
		for _, e := range entries {
			e.c.Evaluate(tr.X[s.Sizes.K-1], nil, s.Terminal.C[g][0][e.offset:e.offset+e.c.Dim()])
		}
	}
}

func isSpecial(c Constraint) bool {
	switch c.(type) {
	case *MinTimeLink, *InfeasibleEq:
		return true
	default:
		return false
	}
}

// JacobianAll fills ∂c/∂x, ∂c/∂u for every constraint, per spec.md §4.3's
// jacobian_all(Z). Jx/Ju are indexed [group][knot][row][col]; callers
// (the backward pass) read the slices for the knot they're processing.
type Jacobians struct {
	InteriorJx, InteriorJu map[traj.Group][][][]float64 // [knot][row][col]
	TerminalJx             map[traj.Group][][][]float64
}

// NewJacobians allocates zeroed Jacobian buffers for this set, reused
// across backward passes.
func (s *Set) NewJacobians() *Jacobians {
	j := &Jacobians{
		InteriorJx: map[traj.Group][][][]float64{},
		InteriorJu: map[traj.Group][][][]float64{},
		TerminalJx: map[traj.Group][][][]float64{},
	}
	numInterior := s.Sizes.K - 1
	for g := traj.Group(0); g < 4; g++ {
		rows := s.Interior.Rows(g)
		j.InteriorJx[g] = make([][][]float64, numInterior)
		j.InteriorJu[g] = make([][][]float64, numInterior)
		for k := 0; k < numInterior; k++ {
			j.InteriorJx[g][k] = zeroMat(rows, s.Sizes.N)
			j.InteriorJu[g][k] = zeroMat(rows, s.Sizes.MM)
		}
		trows := s.Terminal.Rows(g)
		j.TerminalJx[g] = [][][]float64{zeroMat(trows, s.Sizes.N)}
	}
	return j
}

func zeroMat(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// JacobianAll fills j from the current trajectory.
func (s *Set) JacobianAll(tr *traj.Trajectory, j *Jacobians) {
	numInterior := s.Sizes.K - 1
	fill := func(k int) {
		for g, entries := range s.interiorLayout {
			jx, ju := j.InteriorJx[g][k], j.InteriorJu[g][k]
			for _, e := range entries {
				if isSpecial(e.c) {
					continue
				}
				e.c.Jacobian(tr.X[k], tr.U[k], jx[e.offset:e.offset+e.c.Dim()], ju[e.offset:e.offset+e.c.Dim()])
			}
		}
	}
	s.parallelKnots(numInterior, fill)

	if s.link != nil {
		for k := 0; k < numInterior-1; k++ {
			ju := j.InteriorJu[traj.GroupControlEq][k]
			ju[s.linkOffset][s.link.col] = 1
		}
	}
	if s.infeasible != nil {
		for k := 0; k < numInterior; k++ {
			ju := j.InteriorJu[traj.GroupControlEq][k]
			s.infeasible.Jacobian(nil, nil, nil, ju[s.infOffset:s.infOffset+s.infeasible.Dim()])
		}
	}

	for g, entries := range s.terminalLayout {
		jx := j.TerminalJx[g][0]
		for _, e := range entries {
			e.c.Jacobian(tr.X[s.Sizes.K-1], nil, jx[e.offset:e.offset+e.c.Dim()], nil)
		}
	}
}

// UpdateActiveSets refreshes a[j] for every inequality group in both
// arenas, per spec.md §4.3's update_active_set(tol).
func (s *Set) UpdateActiveSets() {
	for g := traj.Group(0); g < 4; g++ {
		s.Interior.UpdateActiveSet(g, s.ActiveTol)
		s.Terminal.UpdateActiveSet(g, s.ActiveTol)
	}
}

// CMax returns the outer loop's c_max: max over groups/knots of the
// active-set-weighted infinity norm, per spec.md §4.8 step 2.
func (s *Set) CMax() float64 {
	m := 0.0
	for g := traj.Group(0); g < 4; g++ {
		for k := range s.Interior.C[g] {
			if v := s.Interior.MaxViolation(g, k); v > m {
				m = v
			}
		}
		for k := range s.Terminal.C[g] {
			if v := s.Terminal.MaxViolation(g, k); v > m {
				m = v
			}
		}
	}
	return m
}

// CostContribution sums Σ ½cᵀIμc + λᵀc over every row/knot, per spec.md
// §4.3's cost_contribution().
func (s *Set) CostContribution() float64 {
	total := 0.0
	for g := traj.Group(0); g < 4; g++ {
		for k := range s.Interior.C[g] {
			total += s.Interior.CostContribution(g, k)
		}
		for k := range s.Terminal.C[g] {
			total += s.Terminal.CostContribution(g, k)
		}
	}
	return total
}

func (s *Set) parallelKnots(n int, fn func(k int)) {
	if s.Workers <= 1 || n < s.Workers*4 {
		for k := 0; k < n; k++ {
			fn(k)
		}
		return
	}
	workers := s.Workers
	if workers > runtime.GOMAXPROCS(0) {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for k := lo; k < hi; k++ {
				fn(k)
			}
		}(start, end)
	}
	wg.Wait()
}
