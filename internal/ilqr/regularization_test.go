package ilqr

import "testing"

// TestRegularizationIncreaseGrowsGeometrically checks spec.md §4.7's drho
// growth schedule and its clamp to RhoMax.
func TestRegularizationIncreaseGrowsGeometrically(t *testing.T) {
	r := NewRegularization(1e-6, 1e8, 1.6)

	if r.Rho != 1e-6 || r.Drho != 1.0 {
		t.Fatalf("NewRegularization() = %+v, want floor with drho=1", r)
	}

	ok := r.Increase()
	if !ok {
		t.Fatalf("Increase() reported exceeded on the first call")
	}
	if r.Drho != 1.6 {
		t.Fatalf("Drho after one Increase() = %v, want 1.6", r.Drho)
	}
	wantRho := 1e-6 * 1.6
	if r.Rho < wantRho*0.999 || r.Rho > wantRho*1.001 {
		t.Fatalf("Rho after one Increase() = %v, want ~%v", r.Rho, wantRho)
	}
}

// TestRegularizationIncreaseReportsPastMax checks that repeated failures
// eventually push Rho past RhoMax and Increase reports it.
func TestRegularizationIncreaseReportsPastMax(t *testing.T) {
	r := NewRegularization(1e-6, 1.0, 1.6)

	exceeded := false
	for i := 0; i < 100; i++ {
		if !r.Increase() {
			exceeded = true
			break
		}
	}
	if !exceeded {
		t.Fatalf("Increase() never reported exceeding RhoMax=%v after 100 calls, Rho=%v", r.RhoMax, r.Rho)
	}
}

// TestRegularizationDecreaseResetsTowardFloor checks that a single
// Decrease after growth brings drho/rho back down, and repeated successes
// settle at the floor.
func TestRegularizationDecreaseResetsTowardFloor(t *testing.T) {
	r := NewRegularization(1e-6, 1e8, 1.6)
	r.Increase()
	r.Increase()
	grown := r.Rho

	r.Decrease()
	if r.Rho >= grown {
		t.Fatalf("Decrease() did not shrink Rho: before=%v after=%v", grown, r.Rho)
	}

	for i := 0; i < 50; i++ {
		r.Decrease()
	}
	if r.Rho != r.RhoMin {
		t.Fatalf("Rho after repeated Decrease() = %v, want floor %v", r.Rho, r.RhoMin)
	}
}
