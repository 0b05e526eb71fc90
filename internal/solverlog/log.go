// Package solverlog builds the *slog.Logger the solver façade and CLI
// pass down as Options.Logger, in the teacher's tint-console-on-a-
// terminal, plain-JSON-otherwise idiom.
package solverlog

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Event names a fixed vocabulary of solve-loop events for log records, so
// callers can filter or test against it rather than free-text messages.
// The iLQR and AL loops themselves hold no logger and log nothing.
const (
	EventRhoIncrease      = "rho_increase"
	EventRhoDecrease      = "rho_decrease"
	EventCholeskyRetry    = "cholesky_retry"
	EventRolloutDiverged  = "rollout_diverged"
	EventOuterTransition  = "outer_transition"
	EventGoFeasible       = "go_feasible"
	EventConverged        = "converged"
	EventIterationCap     = "iteration_cap"
)

// New builds a logger writing to w. Verbose raises the level to Debug;
// otherwise only Info and above are emitted. When w is a terminal, a
// tint console handler renders colorized level/time prefixes (the
// teacher's development-console style); otherwise output is structured
// JSON, the form a log aggregator or test harness expects.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default builds a logger writing to stderr, the façade's nil-safe
// fallback when Options.Logger is unset.
func Default(verbose bool) *slog.Logger {
	return New(os.Stderr, verbose)
}
