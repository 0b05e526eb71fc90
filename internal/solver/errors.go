package solver

import "errors"

// Sentinel errors for problem construction failures the façade surfaces
// directly, per spec.md §7. Numerical recovery (regularization, rollout
// divergence) happens inside internal/ilqr and internal/alqr and is
// reported through Stats (Converged, RhoIncreases, RhoFinal, and each
// Record's Diverged/RegularizationHit), never through Solve's error.
var (
	// ErrDimensionMismatch indicates Problem's declared sizes don't match
	// the shapes of X0, Xf, Q, R, or Qf.
	ErrDimensionMismatch = errors.New("solver: dimension mismatch in problem definition")
)
