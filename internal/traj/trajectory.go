package traj

// Trajectory is the knot-indexed sequence (x_k, u_k, dt_k), k=1..K, plus
// the foh midpoint auxiliaries. All slices are allocated once, sized from
// [Sizes], and mutated in place across iterations per spec.md §3 "Lifecycle".
type Trajectory struct {
	Sizes Sizes

	X  []State   // length K
	U  []Control // length K (control at K only meaningful under foh)
	Dt []float64 // length K-1

	// foh auxiliaries, length K-1 each; unused (nil) under zoh.
	Dx []State // dx_k = (x_{k+1} - x_k) / dt_k, the interval's average rate
	Xm []State // state midpoint
	Um []State // control midpoint

	Foh bool
}

// NewTrajectory allocates a trajectory with the given sizes.
func NewTrajectory(sz Sizes, foh bool) *Trajectory {
	t := &Trajectory{Sizes: sz, Foh: foh}
	t.X = make([]State, sz.K)
	t.U = make([]Control, sz.K)
	t.Dt = make([]float64, sz.K-1)
	for k := 0; k < sz.K; k++ {
		t.X[k] = make(State, sz.N)
		t.U[k] = make(Control, sz.MM)
	}
	if foh {
		t.Dx = make([]State, sz.K-1)
		t.Xm = make([]State, sz.K-1)
		t.Um = make([]State, sz.K-1)
		for k := 0; k < sz.K-1; k++ {
			t.Dx[k] = make(State, sz.N)
			t.Xm[k] = make(State, sz.N)
			t.Um[k] = make(State, sz.MM)
		}
	}
	return t
}

// CopyFrom overwrites t's contents with src's (same sizes). Used to swap
// the shadow trajectory (X̄,Ū) into (X,U) on a line-search accept.
func (t *Trajectory) CopyFrom(src *Trajectory) {
	for k := range t.X {
		copy(t.X[k], src.X[k])
		copy(t.U[k], src.U[k])
	}
	copy(t.Dt, src.Dt)
	if t.Foh {
		for k := range t.Dx {
			copy(t.Dx[k], src.Dx[k])
			copy(t.Xm[k], src.Xm[k])
			copy(t.Um[k], src.Um[k])
		}
	}
}

// TotalTime returns Σ dt_k.
func (t *Trajectory) TotalTime() float64 {
	total := 0.0
	for _, dt := range t.Dt {
		total += dt
	}
	return total
}

// StripEmbeddings returns a copy of (X,U) with the minimum-time and
// infeasible-start augmented control columns removed, the form the façade
// hands back to the caller per spec.md §6.
func (t *Trajectory) StripEmbeddings() (X []State, U []Control) {
	X = make([]State, len(t.X))
	U = make([]Control, len(t.U))
	for k := range t.X {
		X[k] = t.X[k].Clone()
		m := t.Sizes.M
		u := make(Control, m)
		copy(u, t.U[k][:m])
		U[k] = u
	}
	return
}
