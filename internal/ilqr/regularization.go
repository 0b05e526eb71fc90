package ilqr

// Regularization tracks the two-level rho/drho schedule of spec.md §4.7:
// drho grows geometrically on repeated failure and drops to at most
// 1/Factor on any success. rho is kept at or above rhoMin; it is not
// clamped at rhoMax, and Increase reports when rho has passed it.
type Regularization struct {
	Rho, Drho      float64
	RhoMin, RhoMax float64
	Factor         float64
}

// NewRegularization starts at the floor with drho reset.
func NewRegularization(rhoMin, rhoMax, factor float64) *Regularization {
	return &Regularization{Rho: rhoMin, Drho: 1.0, RhoMin: rhoMin, RhoMax: rhoMax, Factor: factor}
}

// Increase grows drho geometrically and applies it to rho, per spec.md
// §4.7's "on backward-pass Cholesky failure or a failed line search".
// Returns false if rho would exceed RhoMax (the caller should stop
// retrying and report non-convergence via Result.RegularizationHit).
func (r *Regularization) Increase() bool {
	r.Drho = max(r.Drho*r.Factor, r.Factor)
	r.Rho = max(r.Rho*r.Drho, r.RhoMin)
	return r.Rho <= r.RhoMax
}

// Decrease shrinks drho and rho back toward the floor on a successful
// backward pass + accepted line search step.
func (r *Regularization) Decrease() {
	r.Drho = min(r.Drho/r.Factor, 1.0/r.Factor)
	r.Rho = max(r.Rho*r.Drho, r.RhoMin)
}
