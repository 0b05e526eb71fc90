package ilqr

import "errors"

// Sentinel and typed errors for the inner solver, per spec.md §7's error
// kinds. Numerical failures (RolloutDiverged, CholeskyFailure,
// RegularizationExceeded) are recovered locally by the core and reported
// through [Result]'s Diverged/RegularizationHit flags, never through
// Solve's returned error; only DimensionMismatch and UserCallbackError are
// meant to propagate to the caller. The sentinels below name these
// failure kinds for callers that want to log or test against them (see
// Result.Diverged/RegularizationHit). Grounded on the teacher's
// internal/dynamo/errors.go sentinel + wrapping-error style.
var (
	// ErrDimensionMismatch indicates the problem's declared sizes don't
	// match the shapes its callbacks actually return.
	ErrDimensionMismatch = errors.New("ilqr: dimension mismatch between problem and callbacks")

	// ErrRolloutDiverged names the failure kind behind Result.Diverged: a
	// forward rollout exceeded the state or control bounds of spec.md §3's
	// invariant.
	ErrRolloutDiverged = errors.New("ilqr: rollout diverged (state or control exceeded bounds)")

	// ErrRegularizationExceeded names the failure kind behind
	// Result.RegularizationHit: rho exceeded rho_max.
	ErrRegularizationExceeded = errors.New("ilqr: regularization exceeded rho_max")

	// ErrCholeskyFailed indicates the backward pass could not factorize
	// Q_uu even after the internal retry cap.
	ErrCholeskyFailed = errors.New("ilqr: backward pass Cholesky factorization failed")
)

// CallbackError wraps a panic or error surfaced from a user-supplied
// dynamics/cost/constraint callback, spec.md §7's UserCallbackError: these
// are fatal and surfaced immediately, never retried.
type CallbackError struct {
	Stage string // "dynamics", "cost", "constraint"
	Err   error
}

func (e *CallbackError) Error() string { return "ilqr: " + e.Stage + " callback error: " + e.Err.Error() }
func (e *CallbackError) Unwrap() error { return e.Err }
