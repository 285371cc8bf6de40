package evaluation

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// AveragePrecision computes the area under the interpolated
// precision-recall curve of one class.
//
// Records are ordered by descending score (ties keep their input order).
// Precision is made monotonically non-increasing by carrying the running
// maximum backwards, and AP is the sum of precision[i] times the recall gained
// at step i, counting recall from zero.
//
// Arguments:
//   - records: The pooled match records of the class across all images.
//   - totalTruth: The number of ground truth boxes of the class.
//
// Returns:
//   - The average precision, 0 if there are no records or no ground truth.
//   - The interpolated curve.
func AveragePrecision(records []Record, totalTruth int) (float64, Curve) {
	if len(records) == 0 || totalTruth <= 0 {
		return 0, Curve{}
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	n := len(sorted)
	hits := make([]float64, n)
	for i, r := range sorted {
		if r.TruePositive {
			hits[i] = 1
		}
	}
	cumTP := floats.CumSum(make([]float64, n), hits)

	precision := make([]float64, n)
	recall := make([]float64, n)
	for i := range cumTP {
		precision[i] = cumTP[i] / float64(i+1)
		recall[i] = cumTP[i] / float64(totalTruth)
	}

	for i := n - 2; i >= 0; i-- {
		if precision[i+1] > precision[i] {
			precision[i] = precision[i+1]
		}
	}

	ap, prev := 0.0, 0.0
	for i := range precision {
		ap += precision[i] * (recall[i] - prev)
		prev = recall[i]
	}

	return ap, Curve{Precision: precision, Recall: recall}
}
