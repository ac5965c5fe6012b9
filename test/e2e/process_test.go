package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/standyield/standyield/api/v1alpha1"
	"github.com/standyield/standyield/internal/estimation"
	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/internal/metrics"
	"github.com/standyield/standyield/internal/processor"
)

func decodeStands(path string) *v1alpha1.StandList {
	f, err := os.Open(path)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = f.Close() }()
	list, err := v1alpha1.DecodeStandList(f)
	Expect(err).NotTo(HaveOccurred())
	return list
}

func standByName(list *v1alpha1.StandList, name string) *v1alpha1.Stand {
	for i := range list.Items {
		if list.Items[i].Metadata.Name == name {
			return &list.Items[i]
		}
	}
	Fail("stand " + name + " not found")
	return nil
}

// expectConsistentLayer checks the invariants every processed layer holds.
func expectConsistentLayer(layer *v1alpha1.LayerStatus) {
	percents := 0.0
	for _, sp := range layer.Species {
		percents += sp.Percent
		classBA := sp.BaseArea.U75To125 + sp.BaseArea.U125To175 + sp.BaseArea.U175To225 + sp.BaseArea.Over225
		Expect(classBA).To(BeNumerically("~", sp.BaseArea.All, 2e-4*sp.BaseArea.All),
			"species %s class basal areas", sp.Genus)
		classTPH := sp.TreesPerHectare.U75To125 + sp.TreesPerHectare.U125To175 +
			sp.TreesPerHectare.U175To225 + sp.TreesPerHectare.Over225
		Expect(classTPH).To(BeNumerically("~", sp.TreesPerHectare.All, 2e-4*sp.TreesPerHectare.All),
			"species %s class densities", sp.Genus)
	}
	Expect(percents).To(BeNumerically("~", 100, 1e-5))
	Expect(layer.WholeStemVolume.All).To(BeNumerically(">", 0))
}

var _ = Describe("Processing a StandList", Ordered, func() {
	var (
		list     *v1alpha1.StandList
		recorder *metrics.Recorder
		summary  processor.Summary
	)

	BeforeAll(func() {
		var err error
		recorder, err = metrics.NewRecorder(metrics.Config{Namespace: cfg.Metrics.Namespace})
		Expect(err).NotTo(HaveOccurred())
		proc, err := processor.New(cfg, estimation.NewFromConfig(&cfg.Coefficients, logging.Default()), recorder)
		Expect(err).NotTo(HaveOccurred())

		list = decodeStands(standsPath)
		ctx := logging.IntoContext(context.Background(), logging.Default())
		summary, err = proc.ProcessStandList(ctx, list)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should account for every stand", func() {
		Expect(summary).To(Equal(processor.Summary{Total: 6, Processed: 4, Invalid: 1, Failed: 1}))
		for _, stand := range list.Items {
			Expect(stand.Status).NotTo(BeNil(), "stand %s has no status", stand.Metadata.Name)
		}
	})

	It("should allocate a mixed primary layer by volume share", func() {
		st := standByName(list, "mixed-pl-fd").Status
		Expect(st.Reason).To(Equal(v1alpha1.ReasonProcessed))
		Expect(st.Mode).To(Equal("unchanged"))
		Expect(st.Primary.PrimaryGenus).To(Equal("PL"))
		Expect(st.Primary.Species[0].Percent).To(BeNumerically("~", 64.797614, 1e-2))
		Expect(st.Primary.Species[1].LoreyHeight).To(Equal(20.0), "FD height is clamped to its limit")
		Expect(st.Primary.BaseArea.All).To(BeNumerically("~", 30, 1e-9))
		Expect(st.Primary.TreesPerHectare.All).To(BeNumerically("~", 1177.7465788800255, 1e-3))
		expectConsistentLayer(st.Primary)
	})

	It("should not depend on species order", func() {
		a := standByName(list, "mixed-pl-fd").Status.Primary
		b := standByName(list, "mixed-with-veteran").Status.Primary
		Expect(b.Species[1].Genus).To(Equal("PL"))
		Expect(b.Species[1].Percent).To(BeNumerically("~", a.Species[0].Percent, 1e-2))
		Expect(b.Species[0].Percent).To(BeNumerically("~", a.Species[1].Percent, 1e-2))
		expectConsistentLayer(b)
	})

	It("should give a single species the layer totals", func() {
		st := standByName(list, "single-pl").Status
		Expect(st.Reason).To(Equal(v1alpha1.ReasonProcessed))
		Expect(st.Mode).To(Equal("unchanged"))
		sp := st.Primary.Species[0]
		Expect(sp.Percent).To(Equal(100.0))
		Expect(sp.LoreyHeight).To(Equal(18.0))
		Expect(sp.BaseArea.Over225).To(BeNumerically("~", 13, 1e-9))
		Expect(sp.QuadMeanDiameter.All).To(BeNumerically("~", 22.567583341910254, 1e-6))
		Expect(sp.WholeStemVolume.All).To(BeNumerically("~", 343.09551531171513, 1e-6))
		expectConsistentLayer(st.Primary)
	})

	It("should estimate veteran layers", func() {
		st := standByName(list, "veteran-only").Status
		Expect(st.Reason).To(Equal(v1alpha1.ReasonProcessed))
		Expect(st.Primary).To(BeNil())
		Expect(st.Veteran.PrimaryGenus).To(Equal("FD"))
		Expect(st.Veteran.BaseArea.All).To(BeNumerically("~", 9.1028210151304, 1e-9))
		Expect(st.Veteran.BaseArea.Over225).To(Equal(st.Veteran.BaseArea.All))
		Expect(st.Veteran.TreesPerHectare.All).To(BeNumerically("~", 114.61773671133498, 1e-6))
		Expect(st.Veteran.QuadMeanDiameter.All).To(BeNumerically("~", 31.799269751744017, 1e-6))

		withPrimary := standByName(list, "mixed-with-veteran").Status
		Expect(withPrimary.Veteran.Species).To(HaveLen(1))
		Expect(withPrimary.Veteran.Species[0].QuadMeanDiameter.Over225).To(BeNumerically("~", 42.025829580621945, 1e-9))
	})

	It("should reject invalid records without processing them", func() {
		st := standByName(list, "bad-percent").Status
		Expect(st.Reason).To(Equal(v1alpha1.ReasonInvalidInput))
		Expect(st.Message).To(ContainSubstring("percents sum to 90"))
		Expect(st.Primary).To(BeNil())
	})

	It("should report allocation failures per stand", func() {
		st := standByName(list, "unknown-genus").Status
		Expect(st.Reason).To(Equal(v1alpha1.ReasonAllocationFailed))
		Expect(st.Message).To(ContainSubstring(estimation.ErrCoefficientsNotFound.Error()))
	})

	It("should record metrics", func() {
		path := filepath.Join(GinkgoT().TempDir(), "standyield.prom")
		Expect(recorder.WriteTextfile(path)).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		text := string(data)
		Expect(text).To(ContainSubstring(`standyield_polygons_processed_total{result="success"} 4`))
		Expect(text).To(ContainSubstring(`standyield_polygons_processed_total{result="failure"} 1`))
		Expect(text).To(ContainSubstring(`standyield_errors_total{stage="allocation"} 1`))
		Expect(text).To(ContainSubstring("standyield_allocation_solver_iterations_count 2"))
	})
})

var _ = Describe("The standyield CLI", Ordered, func() {
	BeforeAll(func() {
		if skipCLITests {
			Skip("SKIP_CLI_TESTS=true")
		}
	})

	It("should print its version", func() {
		out, err := standyield("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("standyield "))
	})

	It("should process a StandList into a file", func() {
		dir := GinkgoT().TempDir()
		output := filepath.Join(dir, "out.yaml")
		textfile := filepath.Join(dir, "standyield.prom")
		_, err := standyield("process", "-c", configPath, "-f", standsPath, "-o", output,
			"--workers", "1", "--metrics-textfile", textfile)
		Expect(err).NotTo(HaveOccurred())

		processed := decodeStands(output)
		Expect(processed.Items).To(HaveLen(6))
		Expect(standByName(processed, "mixed-pl-fd").Status.Reason).To(Equal(v1alpha1.ReasonProcessed))
		Expect(standByName(processed, "mixed-pl-fd").Metadata.Labels).To(HaveKeyWithValue("district", "DCK"))
		Expect(standByName(processed, "unknown-genus").Status.Reason).To(Equal(v1alpha1.ReasonAllocationFailed))

		metricsText, err := os.ReadFile(textfile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(metricsText)).To(ContainSubstring("standyield_reconcile_total"))
	})

	It("should stop at the first failure with --fail-fast", func() {
		By("moving the failing stand to the front of the document")
		list := decodeStands(standsPath)
		failing := *standByName(list, "unknown-genus")
		reordered := []v1alpha1.Stand{failing}
		for _, stand := range list.Items {
			if stand.Metadata.Name != failing.Metadata.Name {
				reordered = append(reordered, stand)
			}
		}
		list.Items = reordered
		input := filepath.Join(GinkgoT().TempDir(), "stands.yaml")
		f, err := os.Create(input)
		Expect(err).NotTo(HaveOccurred())
		Expect(v1alpha1.Encode(f, list)).To(Succeed())
		Expect(f.Close()).To(Succeed())

		out, err := standyield("process", "-c", configPath, "-f", input, "--workers", "1", "--fail-fast")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("processing stopped"))

		processed, err := v1alpha1.DecodeStandList(strings.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(standByName(processed, "unknown-genus").Status.Reason).To(Equal(v1alpha1.ReasonAllocationFailed))
		Expect(standByName(processed, "mixed-pl-fd").Status.Reason).To(Equal(v1alpha1.ReasonSkipped))
		Expect(standByName(processed, "bad-percent").Status.Reason).To(Equal(v1alpha1.ReasonInvalidInput))
	})

	It("should reject an invalid worker count", func() {
		_, err := standyield("process", "-c", configPath, "-f", standsPath, "--workers", "0")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("workers"))
	})

	It("should reconcile standalone vectors", func() {
		out, err := standyield("reconcile", "-c", configPath, "-f", vectorsPath)
		Expect(err).NotTo(HaveOccurred())
		list, err := v1alpha1.DecodeVectorList(strings.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Items).To(HaveLen(5))
		Expect(list.Items[0].Status.Mode).To(Equal("unchanged"))
		Expect(list.Items[1].Status.Mode).To(Equal("mode1"))
		Expect(list.Items[2].Status.Mode).To(Equal("mode2"))
		Expect(list.Items[3].Status.Mode).To(Equal("zero"))
		Expect(list.Items[4].Status.Message).NotTo(BeEmpty())
	})
})
