package processor

import (
	"context"
	"errors"

	"github.com/standyield/standyield/api/v1alpha1"
	"github.com/standyield/standyield/internal/engines/reconcile"
	"github.com/standyield/standyield/internal/logging"
	"github.com/standyield/standyield/pkg/core"
)

// Summary counts the outcomes of a processed document.
type Summary struct {
	Total     int
	Processed int
	Invalid   int
	Failed    int
	Skipped   int
}

// ProcessStandList processes every valid record of list and writes each
// record's status back into list. Records that fail validation are marked
// invalid and never reach the engines. The returned error is non-nil only
// when fail-fast stopped the batch or ctx was cancelled.
func (p *Processor) ProcessStandList(ctx context.Context, list *v1alpha1.StandList) (Summary, error) {
	logger := logging.FromContext(ctx)
	summary := Summary{Total: len(list.Items)}

	polygons := make([]*core.Polygon, 0, len(list.Items))
	index := make([]int, 0, len(list.Items))
	for i := range list.Items {
		stand := &list.Items[i]
		poly, err := stand.ToCore()
		if err != nil {
			logger.Info("Skipping invalid stand", "stand", stand.Metadata.Name, "error", err.Error())
			stand.SetStatus(nil, v1alpha1.ReasonInvalidInput, err)
			summary.Invalid++
			continue
		}
		polygons = append(polygons, poly)
		index = append(index, i)
	}

	results, batchErr := p.ProcessAll(ctx, polygons)
	for j, result := range results {
		reason := statusReason(result.Err)
		list.Items[index[j]].SetStatus(result, reason, result.Err)
		switch reason {
		case v1alpha1.ReasonProcessed:
			summary.Processed++
		case v1alpha1.ReasonSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	logger.Info("Processed stands", "total", summary.Total, "processed", summary.Processed,
		"invalid", summary.Invalid, "failed", summary.Failed, "skipped", summary.Skipped)
	return summary, batchErr
}

func statusReason(err error) string {
	if err == nil {
		return v1alpha1.ReasonProcessed
	}
	switch StageOf(err) {
	case StageReconcile, StageSpeciesReconcile:
		return v1alpha1.ReasonReconcileFailed
	case StageAllocation:
		return v1alpha1.ReasonAllocationFailed
	case StageVeteran:
		return v1alpha1.ReasonVeteranFailed
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return v1alpha1.ReasonSkipped
	}
	return v1alpha1.ReasonReconcileFailed
}

// ReconcileVectorList reconciles every breakdown of list in place. A breakdown
// that cannot be reconciled keeps its input values and records the failure.
func (p *Processor) ReconcileVectorList(ctx context.Context, list *v1alpha1.UtilizationVectorList) Summary {
	logger := logging.FromContext(ctx)
	summary := Summary{Total: len(list.Items)}
	engine := reconcile.NewEngine()

	for i := range list.Items {
		item := &list.Items[i]
		ba, tph, dq := item.Vectors()
		outcome, err := engine.Reconcile(ctx, &ba, &tph, &dq)
		if err != nil {
			logger.V(logging.DEBUG).Info("Reconciliation failed", "name", item.Metadata.Name, "error", err.Error())
			ba, tph, dq = item.Vectors()
			item.SetResult(ba, tph, dq, "", 0, err)
			p.recorder.RecordError(StageReconcile)
			summary.Failed++
			continue
		}
		p.recorder.RecordReconcile(outcome.Mode.String())
		item.SetResult(ba, tph, dq, outcome.Mode.String(), outcome.Iterations, nil)
		summary.Processed++
	}
	return summary
}
