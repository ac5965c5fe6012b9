package e2e

import (
	"context"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/standyield/standyield/api/v1alpha1"
	"github.com/standyield/standyield/internal/estimation"
	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/internal/processor"
)

func classSum(v v1alpha1.ClassValues) float64 {
	return v.U75To125 + v.U125To175 + v.U175To225 + v.Over225
}

var _ = Describe("Reconciling utilization vectors", Ordered, func() {
	var (
		input   *v1alpha1.UtilizationVectorList
		list    *v1alpha1.UtilizationVectorList
		summary processor.Summary
	)

	item := func(name string) *v1alpha1.UtilizationVectors {
		for i := range list.Items {
			if list.Items[i].Metadata.Name == name {
				return &list.Items[i]
			}
		}
		Fail("vectors " + name + " not found")
		return nil
	}

	BeforeAll(func() {
		decode := func() *v1alpha1.UtilizationVectorList {
			f, err := os.Open(vectorsPath)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = f.Close() }()
			l, err := v1alpha1.DecodeVectorList(f)
			Expect(err).NotTo(HaveOccurred())
			return l
		}
		input = decode()
		list = decode()

		proc, err := processor.New(cfg, estimation.NewFromConfig(&cfg.Coefficients, logging.Default()), nil)
		Expect(err).NotTo(HaveOccurred())
		summary = proc.ReconcileVectorList(logging.IntoContext(context.Background(), logging.Default()), list)
	})

	It("should count every item", func() {
		Expect(summary).To(Equal(processor.Summary{Total: 5, Processed: 4, Failed: 1}))
	})

	DescribeTable("should select the expected mode",
		func(name, mode string) {
			Expect(item(name).Status).NotTo(BeNil())
			Expect(item(name).Status.Mode).To(Equal(mode))
			Expect(item(name).Status.Message).To(BeEmpty())
		},
		Entry("consistent breakdown", "consistent", "unchanged"),
		Entry("too few trees for the class bounds", "scarce", "mode1"),
		Entry("diameters off by a common factor", "scaled", "mode2"),
		Entry("no basal area", "empty", "zero"),
	)

	It("should leave a consistent breakdown untouched", func() {
		got := item("consistent")
		want := input.Items[0]
		opt := cmpopts.EquateApprox(0, 1e-9)
		Expect(cmp.Diff(want.BaseArea, got.BaseArea, opt)).To(BeEmpty())
		Expect(cmp.Diff(want.TreesPerHectare, got.TreesPerHectare, opt)).To(BeEmpty())
		Expect(cmp.Diff(want.QuadMeanDiameter, got.QuadMeanDiameter, opt)).To(BeEmpty())
	})

	It("should keep class sums equal to the totals", func() {
		for _, name := range []string{"consistent", "scarce", "scaled"} {
			v := item(name)
			Expect(classSum(v.BaseArea)).To(BeNumerically("~", v.BaseArea.All, 1e-6*v.BaseArea.All), name)
			Expect(classSum(v.TreesPerHectare)).To(BeNumerically("~", v.TreesPerHectare.All, 1e-3), name)
		}
	})

	It("should scale diameters within one iteration", func() {
		v := item("scaled")
		Expect(v.Status.Iterations).To(Equal(1))
		Expect(v.QuadMeanDiameter.U75To125).To(BeNumerically("~", 10.347, 1e-2))
		Expect(v.QuadMeanDiameter.U125To175).To(BeNumerically("~", 15.521, 1e-2))
		Expect(v.QuadMeanDiameter.U175To225).To(BeNumerically("~", 20.695, 1e-2))
		Expect(v.QuadMeanDiameter.Over225).To(BeNumerically("~", 31.042, 1e-2))
		Expect(v.BaseArea.Over225).To(Equal(12.0))
	})

	It("should zero every class when there is no basal area", func() {
		v := item("empty")
		Expect(v.BaseArea).To(Equal(v1alpha1.ClassValues{}))
		Expect(v.TreesPerHectare).To(Equal(v1alpha1.ClassValues{}))
	})

	It("should keep the input of a failed breakdown and report why", func() {
		v := item("mismatch")
		Expect(v.Status.Mode).To(BeEmpty())
		Expect(v.Status.Message).To(ContainSubstring("sum to 30, expected 40"))
		Expect(cmp.Diff(input.Items[4].BaseArea, v.BaseArea)).To(BeEmpty())
	})
})
