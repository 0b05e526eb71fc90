package embed

import "github.com/arnewlabs/trajopt/internal/traj"

// LinearInterpolateStates builds the linear-interpolation initial state
// guess x0..xf over K knots, used when the caller supplies no initial
// state trajectory, per spec.md §4.9: "if user X₀ is empty, create linear
// interpolation from x0 to xf over N knots".
func LinearInterpolateStates(x0, xf traj.State, k int) []traj.State {
	out := make([]traj.State, k)
	n := len(x0)
	for i := 0; i < k; i++ {
		s := make(traj.State, n)
		frac := 0.0
		if k > 1 {
			frac = float64(i) / float64(k-1)
		}
		for j := 0; j < n; j++ {
			xfj := 0.0
			if j < len(xf) {
				xfj = xf[j]
			}
			s[j] = x0[j] + frac*(xfj-x0[j])
		}
		out[i] = s
	}
	return out
}

// FillInfeasibleControls sets each ui_k = X0_{k+1} - fd(x_k,u_k,dt_k) so
// that the augmented rollout reproduces X0 exactly, per spec.md §4.9:
// "Compute ui_k = X0_{k+1} − fd(x_k,u_k,dt_k) so the augmented rollout is
// exact by construction." dyn is the base (unaugmented) plant dynamics.
func FillInfeasibleControls(base BaseDynamics, x0States []traj.State, u []traj.Control, dt []float64, sz traj.Sizes) {
	lo, _ := sz.InfeasibleCols()
	for k := 0; k < len(u) && k < len(x0States)-1; k++ {
		pred := base.Fd(x0States[k], u[k][:sz.M], dt[k])
		for i := 0; i < sz.N; i++ {
			u[k][lo+i] = x0States[k+1][i] - pred[i]
		}
	}
}

// InfeasibleNorm returns max_k ‖ui_k‖∞ across the trajectory, the quantity
// spec.md §8 checks against 1e-4 before the go-feasible transition.
func InfeasibleNorm(u []traj.Control, sz traj.Sizes) float64 {
	if !sz.Infeasible {
		return 0
	}
	lo, hi := sz.InfeasibleCols()
	m := 0.0
	for _, uk := range u {
		for i := lo; i < hi; i++ {
			if v := abs(uk[i]); v > m {
				m = v
			}
		}
	}
	return m
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// StripInfeasible returns a new trajectory with the infeasible-start
// slack control columns dropped, the "go feasible" transition of spec.md
// §4.9: drop the augmented control dimensions and re-run one more outer
// iteration without them.
func StripInfeasible(tr *traj.Trajectory) *traj.Trajectory {
	newSizes := tr.Sizes
	newSizes.Infeasible = false
	newSizes.MM = newSizes.MBar
	out := traj.NewTrajectory(newSizes, tr.Foh)
	for k := range tr.X {
		copy(out.X[k], tr.X[k])
		copy(out.U[k], tr.U[k][:newSizes.MBar])
	}
	copy(out.Dt, tr.Dt)
	return out
}
