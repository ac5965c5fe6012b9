package reconcile

import (
	"context"
	"math"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/standyield/standyield/pkg/core"
)

// stand builds the three utilization vectors from ALL totals and per-class values.
func stand(baAll, tphAll, dqAll float64, ba, tph, dq [4]float64) (b, t, d core.UtilizationVector) {
	b.Set(core.UtilAll, baAll)
	t.Set(core.UtilAll, tphAll)
	d.Set(core.UtilAll, dqAll)
	for i, uc := range core.UtilClasses {
		b.Set(uc, ba[i])
		t.Set(uc, tph[i])
		d.Set(uc, dq[i])
	}
	return b, t, d
}

// consistentStand returns a stand whose class TPH are exact for the given class BA and dq.
func consistentStand(ba, dq [4]float64, tphScale float64) (b, t, d core.UtilizationVector) {
	var tph [4]float64
	var baAll, tphSum float64
	for i := range ba {
		tph[i] = core.TreesPerHectare(ba[i], dq[i])
		baAll += ba[i]
		tphSum += tph[i]
	}
	tphAll := tphSum * tphScale
	return stand(baAll, tphAll, core.QuadMeanDiameter(baAll, tphAll), ba, tph, dq)
}

func expectReconciled(ba, tph, dq *core.UtilizationVector) {
	GinkgoHelper()
	Expect(math.Abs(ba.ClassSum()-ba.Get(core.UtilAll)) / ba.ClassSum()).To(BeNumerically("<=", ResultTolerance))
	Expect(math.Abs(tph.ClassSum()-tph.Get(core.UtilAll)) / tph.ClassSum()).To(BeNumerically("<=", ResultTolerance))
	for _, uc := range core.UtilClasses {
		if ba.Get(uc) > 0 {
			Expect(dq.Get(uc)).To(BeNumerically(">=", uc.LowBound()), "class %s", uc)
			Expect(dq.Get(uc)).To(BeNumerically("<=", uc.HighBound()), "class %s", uc)
		}
	}
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		engine *Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = NewEngine()
	})

	Context("with no basal area", func() {
		It("should zero the class basal areas and densities", func() {
			ba, tph, dq := stand(0, 0, 0, [4]float64{1, 2, 3, 4}, [4]float64{10, 20, 30, 40}, [4]float64{10, 15, 20, 30})

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Mode).To(Equal(ModeZero))
			Expect(ba.Classes()).To(Equal([]float64{0, 0, 0, 0}))
			Expect(tph.Classes()).To(Equal([]float64{0, 0, 0, 0}))
			Expect(dq.Classes()).To(Equal([]float64{10, 15, 20, 30}), "diameters are left alone")
		})
	})

	Context("with invalid input", func() {
		It("should reject class basal areas that do not sum to the total", func() {
			ba, tph, dq := stand(20, 500, 22.57, [4]float64{1, 2, 4, 12}, [4]float64{}, [4]float64{})

			_, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).To(MatchError(core.ErrBaseAreaMismatch))
			Expect(core.IsProcessingError(err)).To(BeTrue())
		})

		It("should reject a stand diameter under 7.5 cm", func() {
			ba, tph, dq := stand(20, 10000, 0, [4]float64{5, 5, 5, 5}, [4]float64{}, [4]float64{})

			_, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).To(MatchError(core.ErrQuadMeanDiameterTooSmall))
		})
	})

	Context("when the breakdown already agrees with its totals", func() {
		It("should leave all three vectors bit-identical", func() {
			classBA := [4]float64{1, 2, 4, 13}
			classTPH := [4]float64{
				core.TreesPerHectare(1, 10),
				core.TreesPerHectare(2, 15),
				core.TreesPerHectare(4, 20),
			}
			classTPH[3] = 500 - classTPH[0] - classTPH[1] - classTPH[2]
			classDQ := [4]float64{10, 15, 20, core.QuadMeanDiameter(13, classTPH[3])}
			ba, tph, dq := stand(20, 500, core.QuadMeanDiameter(20, 500), classBA, classTPH, classDQ)
			origBA, origTPH, origDQ := ba, tph, dq

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Mode).To(Equal(ModeUnchanged))
			Expect(cmp.Diff(origBA, ba)).To(BeEmpty())
			Expect(cmp.Diff(origTPH, tph)).To(BeEmpty())
			Expect(cmp.Diff(origDQ, dq)).To(BeEmpty())
		})
	})

	Context("when the classes cannot hold the stand density at their minimum diameters", func() {
		It("should pin diameters to low bounds and move basal area down", func() {
			ba, tph, dq := stand(20, 3000, core.QuadMeanDiameter(20, 3000),
				[4]float64{5, 5, 5, 5}, [4]float64{}, [4]float64{10, 15, 20, 25})

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Mode).To(Equal(Mode1))

			Expect(ba.Get(core.U75To125)).To(BeNumerically("~", 9.458741, 1e-5))
			Expect(ba.Get(core.U125To175)).To(BeNumerically("~", 10.541259, 1e-5))
			Expect(ba.Get(core.U175To225)).To(BeZero())
			Expect(ba.Get(core.Over225)).To(BeZero())
			for _, uc := range core.UtilClasses {
				Expect(dq.Get(uc)).To(Equal(uc.LowBound()))
			}
			expectReconciled(&ba, &tph, &dq)
		})

		It("should stop after a partial transfer", func() {
			ba, tph, dq := stand(20, 2000, core.QuadMeanDiameter(20, 2000),
				[4]float64{5, 5, 5, 5}, [4]float64{}, [4]float64{10, 15, 20, 25})

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Mode).To(Equal(Mode1))
			Expect(ba.Get(core.U75To125)).To(Equal(5.0), "the lowest class is untouched")
			Expect(ba.Get(core.U125To175)).To(BeNumerically("~", 6.128558, 1e-5))
			Expect(ba.Get(core.U175To225)).To(BeNumerically("~", 8.871442, 1e-5))
			Expect(ba.Get(core.Over225)).To(BeZero())
			Expect(tph.ClassSum()).To(BeNumerically("~", 2000, 1e-6))
		})
	})

	Context("when the classes hold surplus capacity", func() {
		It("should scale every diameter uniformly when no bound is violated", func() {
			ba, tph, dq := consistentStand([4]float64{2, 4, 6, 8}, [4]float64{10, 15, 20, 30}, 1.05)

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(Outcome{Mode: Mode2, Iterations: 1}))

			scale := 1 / math.Sqrt(1.05)
			for i, want := range []float64{10, 15, 20, 30} {
				Expect(dq.Get(core.UtilClasses[i])).To(BeNumerically("~", want*scale, 1e-9))
			}
			expectReconciled(&ba, &tph, &dq)
		})

		It("should clamp the worst violation each iteration", func() {
			ba, tph, dq := consistentStand([4]float64{2, 4, 6, 8}, [4]float64{12, 15, 20, 30}, 0.8)

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(Outcome{Mode: Mode2, Iterations: 3}))
			Expect(dq.Get(core.U75To125)).To(Equal(12.5))
			Expect(dq.Get(core.U175To225)).To(Equal(22.5))
			Expect(dq.Get(core.U125To175)).To(BeNumerically("~", 17.411023, 1e-5))
			Expect(dq.Get(core.Over225)).To(BeNumerically("~", 34.822045, 1e-5))
			Expect(ba.Classes()).To(Equal([]float64{2, 4, 6, 8}), "mode 2 never moves basal area")
			expectReconciled(&ba, &tph, &dq)
		})
	})

	Context("when mode 2 cannot reconcile the classes", func() {
		It("should fail when the class densities miss the stand density", func() {
			ba, tph, dq := stand(20, 400, core.QuadMeanDiameter(20, 400),
				[4]float64{5, 5, 5, 5}, [4]float64{}, [4]float64{0, 15, 20, 30})

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).To(MatchError(core.ErrTreesPerHectareNotReconciled))
			Expect(err.Error()).To(ContainSubstring("expected 400"))
			Expect(outcome).To(Equal(Outcome{Mode: Mode2, Iterations: 4}))
		})

		It("should give up once every class has been clamped", func() {
			// One class is clamped per iteration: U75To125 and U125To175 at 12.5,
			// Over225 at 22.5, then U175To225 at 17.5.
			ba, tph, dq := stand(21, 1996, core.QuadMeanDiameter(21, 1996),
				[4]float64{8, 4, 8, 1}, [4]float64{}, [4]float64{30, 10, 25, 25})

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).To(MatchError(core.ErrIterationsExceeded))
			Expect(core.IsProcessingError(err)).To(BeTrue())
			Expect(outcome).To(Equal(Outcome{Mode: Mode2, Iterations: MaxMode2Iterations}))
		})

		It("should fail when the class basal areas miss the stand basal area", func() {
			// Reconcile rejects this input before mode 2; the final check still guards mode 2 itself.
			classBA := [4]float64{5, 5, 5, 6}
			classDQ := [4]float64{10, 15, 20, 30}
			var tphAll float64
			for i := range classBA {
				tphAll += core.TreesPerHectare(classBA[i], classDQ[i])
			}
			ba, tph, dq := stand(20, tphAll, core.QuadMeanDiameter(20, tphAll), classBA, [4]float64{}, classDQ)

			outcome, err := reconcileMode2(ctx, &ba, &tph, &dq)
			Expect(err).To(MatchError(core.ErrBaseAreaNotReconciled))
			Expect(err.Error()).To(ContainSubstring("classes sum to 21, expected 20"))
			Expect(outcome).To(Equal(Outcome{Mode: Mode2, Iterations: 1}))
		})
	})

	Context("with a single-class stand just over its class bound", func() {
		It("should collapse the stand into the class holding its diameter", func() {
			tphAll := core.TreesPerHectare(20, 22.6)
			ba, tph, dq := stand(20, tphAll, 22.6,
				[4]float64{0, 0, 20, 0}, [4]float64{0, 0, tphAll * 0.9, 0}, [4]float64{0, 0, 22, 0})

			outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(Outcome{Mode: Mode3, Iterations: 2}))

			Expect(ba.Classes()).To(Equal([]float64{0, 0, 0, 20}))
			Expect(tph.Classes()).To(Equal([]float64{0, 0, 0, tphAll}))
			Expect(dq.Get(core.Over225)).To(Equal(22.6))
			Expect(dq.Get(core.U75To125)).To(Equal(10.0))
			Expect(dq.Get(core.U125To175)).To(Equal(15.0))
			Expect(dq.Get(core.U175To225)).To(Equal(20.0))
			Expect(ba.Get(core.UtilAll)).To(Equal(20.0), "totals are authoritative")
		})
	})
})

var _ = Describe("Mode", func() {
	DescribeTable("String",
		func(m Mode, want string) {
			Expect(m.String()).To(Equal(want))
		},
		Entry("zero", ModeZero, "zero"),
		Entry("unchanged", ModeUnchanged, "unchanged"),
		Entry("mode 1", Mode1, "mode1"),
		Entry("mode 2", Mode2, "mode2"),
		Entry("mode 3", Mode3, "mode3"),
		Entry("unknown", Mode(9), "Mode(9)"),
	)
})

var _ = Describe("worstViolation", func() {
	It("should prefer the strictly larger violation and the earlier class on ties", func() {
		var ba, trial core.UtilizationVector
		for _, uc := range core.UtilClasses {
			ba.Set(uc, 1)
		}
		trial.Set(core.U75To125, 18.75) // high by half
		trial.Set(core.U125To175, 6.25) // low by half
		trial.Set(core.U175To225, 20)
		trial.Set(core.Over225, 30)

		v, found := worstViolation(&ba, &trial)
		Expect(found).To(BeTrue())
		Expect(v.class).To(Equal(core.U75To125))
		Expect(v.low).To(BeFalse())
		Expect(v.bound()).To(Equal(12.5))
	})

	It("should ignore low violations of empty classes", func() {
		var ba, trial core.UtilizationVector
		trial.Set(core.U125To175, 5)

		_, found := worstViolation(&ba, &trial)
		Expect(found).To(BeFalse())
	})
})
