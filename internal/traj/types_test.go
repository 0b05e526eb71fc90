package traj

import (
	"math"
	"testing"
)

func TestStateIsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestStateInfNorm(t *testing.T) {
	s := State{-3, 1, 2}
	if got := s.InfNorm(); got != 3 {
		t.Errorf("InfNorm() = %v, want 3", got)
	}
}

func TestNewSizes(t *testing.T) {
	sz := NewSizes(2, 1, 51, true, true)
	if sz.MBar != 2 {
		t.Errorf("MBar = %d, want 2", sz.MBar)
	}
	if sz.MM != 4 {
		t.Errorf("MM = %d, want 4", sz.MM)
	}
	lo, hi := sz.InfeasibleCols()
	if lo != 2 || hi != 4 {
		t.Errorf("InfeasibleCols = (%d,%d), want (2,4)", lo, hi)
	}
}

func TestNewTrajectory(t *testing.T) {
	sz := NewSizes(2, 1, 5, false, false)
	tr := NewTrajectory(sz, false)

	if len(tr.X) != 5 || len(tr.U) != 5 || len(tr.Dt) != 4 {
		t.Fatalf("unexpected trajectory shape: X=%d U=%d Dt=%d", len(tr.X), len(tr.U), len(tr.Dt))
	}
	if len(tr.X[0]) != 2 {
		t.Errorf("X[0] has wrong dimension: %d", len(tr.X[0]))
	}
}

func TestDualArenaActiveSet(t *testing.T) {
	rows := [numGroups]int{2, 0, 0, 0}
	knots := [numGroups]int{3, 0, 0, 0}
	penaltyInit := [numGroups]float64{1.0, 0, 0, 0}
	a := NewDualArena(rows, knots, penaltyInit)

	a.C[GroupStateIneq][0][0] = 0.5 // violated
	a.C[GroupStateIneq][0][1] = -1.0
	a.Lambda[GroupStateIneq][0][1] = 2.0 // positive multiplier keeps it active

	a.UpdateActiveSet(GroupStateIneq, 1e-4)

	if !a.Active[GroupStateIneq][0][0] {
		t.Error("row 0 should be active (violated)")
	}
	if !a.Active[GroupStateIneq][0][1] {
		t.Error("row 1 should be active (positive multiplier)")
	}
}
