// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-phenodet/images"
)

// DefaultOverlapThreshold is the IoU above which a lower scoring box is suppressed.
const DefaultOverlapThreshold = 0.3

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"` // Overlap threshold for suppression.
	ClassAware   bool    `json:"class_aware" yaml:"class_aware"`     // If true, suppress only within same class.
}

// DefaultNMSConfig returns the suppression settings used when none are given.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{
		IoUThreshold: DefaultOverlapThreshold,
		ClassAware:   true,
	}
}

// ApplyGreedyNMS performs greedy Non-Maximum Suppression over all candidates
// of one whole image.
//
// Candidates are stably sorted by ascending score. The highest scoring one
// left is kept, then it and every remaining box whose IoU with it exceeds
// IoUThreshold are removed, until nothing is left. With ClassAware set the
// candidates are partitioned by class first and each class is suppressed on
// its own, classes in ascending order.
//
// Arguments:
//   - detections: Candidates in any order. The slice is not modified.
//   - config: NMS configuration. nil uses DefaultNMSConfig.
//
// Returns:
//   - The surviving detections, grouped by class and in descending score order
//     within a class. nil if no detections are provided.
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	if len(detections) == 0 {
		return nil
	}
	if config == nil {
		config = DefaultNMSConfig()
	}

	if !config.ClassAware {
		return suppress(detections, config.IoUThreshold)
	}

	classes, buckets := GroupByClass(detections)
	filtered := make([]Result, 0, len(detections))
	for _, class := range classes {
		filtered = append(filtered, suppress(buckets[class], config.IoUThreshold)...)
	}
	return filtered
}

func suppress(detections []Result, threshold float32) []Result {
	pending := make([]Result, len(detections))
	copy(pending, detections)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Score < pending[j].Score
	})

	kept := make([]Result, 0, len(pending))
	for len(pending) > 0 {
		last := len(pending) - 1
		anchor := pending[last]
		kept = append(kept, anchor)

		// Compact in place; the write index never passes the read index.
		remaining := pending[:0]
		for _, candidate := range pending[:last] {
			if images.CalculateIoU(anchor.Box, candidate.Box) > threshold {
				continue
			}
			remaining = append(remaining, candidate)
		}
		pending = remaining
	}

	return kept
}
