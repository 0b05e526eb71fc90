package alqr_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arnewlabs/trajopt/internal/alqr"
	"github.com/arnewlabs/trajopt/internal/constraint"
	"github.com/arnewlabs/trajopt/internal/traj"
)

func buildSet(sz traj.Sizes) *constraint.Set {
	b := constraint.NewBuilder()
	b.Add(constraint.NewBoxState(0, 1.0, true, sz.N, constraint.LocationStage))
	b.Add(constraint.NewGeneral(constraint.SenseEquality, constraint.LocationStage, constraint.VariableState, 1, traj.GroupStateEq,
		func(x traj.State, u traj.Control, out []float64) { out[0] = x[0] },
		func(x traj.State, u traj.Control, jx, ju [][]float64) { jx[0][0] = 1 },
	))
	return b.Build(sz, 1e-3)
}

var _ = Describe("outer loop state machine", func() {
	var (
		sz traj.Sizes
		cs *constraint.Set
		p  alqr.Params
	)

	BeforeEach(func() {
		sz = traj.NewSizes(2, 1, 3, false, false)
		cs = buildSet(sz)
		p = alqr.DefaultParams()

		for k := 0; k < sz.K-1; k++ {
			cs.Interior.C[traj.GroupStateIneq][k][0] = 0.5 // violated: x[0]-1 = 0.5 > 0
			cs.Interior.Active[traj.GroupStateIneq][k][0] = true
			cs.Interior.C[traj.GroupStateEq][k][0] = 0.2
		}
	})

	Describe("State", func() {
		It("reports exactly the three terminal states as terminal", func() {
			Expect(alqr.StateConverged.Terminal()).To(BeTrue())
			Expect(alqr.StateIterationCap.Terminal()).To(BeTrue())
			Expect(alqr.StateMaxPenalty.Terminal()).To(BeTrue())
			Expect(alqr.StateInitialized.Terminal()).To(BeFalse())
			Expect(alqr.StateInnerConverged.Terminal()).To(BeFalse())
			Expect(alqr.StateDualUpdated.Terminal()).To(BeFalse())
		})
	})

	Describe("UpdateDuals", func() {
		It("pushes an inequality multiplier up in proportion to the violation", func() {
			before := cs.Interior.Lambda[traj.GroupStateIneq][0][0]
			alqr.UpdateDuals(cs, p)
			after := cs.Interior.Lambda[traj.GroupStateIneq][0][0]
			Expect(after).To(BeNumerically(">", before))
		})

		It("never drives an inequality multiplier negative", func() {
			cs.Interior.C[traj.GroupStateIneq][0][0] = -10.0 // deeply feasible
			alqr.UpdateDuals(cs, p)
			Expect(cs.Interior.Lambda[traj.GroupStateIneq][0][0]).To(BeNumerically(">=", 0))
		})

		It("accumulates the equality multiplier by mu*h, per the kappa += nu*h convention", func() {
			mu := cs.Interior.Mu[traj.GroupStateEq][0][0]
			h := cs.Interior.C[traj.GroupStateEq][0][0]
			before := cs.Interior.Lambda[traj.GroupStateEq][0][0]

			alqr.UpdateDuals(cs, p)

			Expect(cs.Interior.Lambda[traj.GroupStateEq][0][0]).To(BeNumerically("~", before+mu*h, 1e-9))
		})

		It("clamps multipliers to DualMax", func() {
			p.DualMax = 1.0
			cs.Interior.C[traj.GroupStateIneq][0][0] = 1000.0
			alqr.UpdateDuals(cs, p)
			Expect(cs.Interior.Lambda[traj.GroupStateIneq][0][0]).To(Equal(1.0))
		})
	})

	Describe("UpdatePenalties", func() {
		It("grows every row's penalty by PenaltyScaling when the constraint violation hasn't improved", func() {
			before := cs.Interior.Mu[traj.GroupStateIneq][0][0]
			alqr.UpdatePenalties(cs, p, false)
			after := cs.Interior.Mu[traj.GroupStateIneq][0][0]
			Expect(after).To(BeNumerically("~", before*p.PenaltyScaling, 1e-9))
		})

		It("only grows by PenaltyScalingNo when the violation has improved enough", func() {
			p.PenaltyScalingNo = 1.0
			before := cs.Interior.Mu[traj.GroupStateIneq][0][0]
			alqr.UpdatePenalties(cs, p, true)
			after := cs.Interior.Mu[traj.GroupStateIneq][0][0]
			Expect(after).To(BeNumerically("~", before*p.PenaltyScalingNo, 1e-9))
		})

		It("reports the kickout condition once any row saturates PenaltyMax", func() {
			p.PenaltyMax = 5.0
			cs.Interior.Mu[traj.GroupStateIneq][0][0] = 4.0
			atMax := alqr.UpdatePenalties(cs, p, false)
			Expect(atMax).To(BeTrue())
			Expect(cs.Interior.Mu[traj.GroupStateIneq][0][0]).To(Equal(5.0))
		})

		It("does not report kickout while every row stays under PenaltyMax", func() {
			p.PenaltyMax = 1e6
			atMax := alqr.UpdatePenalties(cs, p, false)
			Expect(atMax).To(BeFalse())
		})
	})
})
