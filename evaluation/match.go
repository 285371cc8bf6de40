package evaluation

import (
	"sort"

	"github.com/nvr-ai/go-phenodet/images"
	"github.com/nvr-ai/go-phenodet/models/postprocess"
)

// MatchImage classifies every detection of one image as a true or false
// positive.
//
// Detections are visited from the most to the least confident. Each takes the
// unclaimed ground truth box of its own class with the highest IoU; it is a
// true positive if that IoU reaches threshold, in which case the box is
// claimed and cannot be matched again. Claims never leak across images. With a
// zero threshold any unclaimed box of the same class is a match.
//
// Arguments:
//   - truth: The ground truth boxes of the image.
//   - detections: The filtered detections of the image.
//   - threshold: The minimum IoU for a match.
//
// Returns:
//   - One record per detection, in the order the detections were visited.
func MatchImage(truth []GroundTruth, detections []postprocess.Result, threshold float32) []Record {
	if len(detections) == 0 {
		return nil
	}

	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].Score > detections[order[b]].Score
	})

	claimed := make([]bool, len(truth))
	records := make([]Record, 0, len(detections))

	for _, i := range order {
		det := detections[i]
		best, bestIoU := -1, float32(0)

		for j, gt := range truth {
			if claimed[j] || gt.Class != det.Class {
				continue
			}
			if iou := images.CalculateIoU(det.Box, gt.Box); best < 0 || iou > bestIoU {
				best, bestIoU = j, iou
			}
		}

		tp := best >= 0 && bestIoU >= threshold
		if tp {
			claimed[best] = true
		}
		records = append(records, Record{Score: det.Score, Class: det.Class, TruePositive: tp})
	}

	return records
}
