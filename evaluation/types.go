// Package evaluation - mean average precision of filtered detections against ground truth.
package evaluation

import (
	"github.com/nvr-ai/go-phenodet/images"
	"github.com/nvr-ai/go-phenodet/models/postprocess"
	"github.com/pkg/errors"
)

// ErrClassMismatch is the cause of errors about class indices outside the
// configured range.
var ErrClassMismatch = errors.New("class index out of range")

// GroundTruth is one labelled object in absolute pixel coordinates.
type GroundTruth struct {
	Box   images.Rect `json:"box" yaml:"box"`
	Class int         `json:"class" yaml:"class"`
}

// Image pairs the ground truth of one image with its filtered detections.
type Image struct {
	Name       string               `json:"name" yaml:"name"`
	Truth      []GroundTruth        `json:"ground_truth" yaml:"ground_truth"`
	Detections []postprocess.Result `json:"detections" yaml:"detections"`
}

// Record is the outcome of matching one detection.
type Record struct {
	Score        float32
	Class        int
	TruePositive bool
}

// Curve is the interpolated precision-recall curve, one point per detection
// in descending confidence order.
type Curve struct {
	Precision []float64 `json:"precision"`
	Recall    []float64 `json:"recall"`
}

// ClassReport is the evaluation of one class.
type ClassReport struct {
	Class         int     `json:"class"`
	AP            float64 `json:"ap"`
	TruthBoxes    int     `json:"truth_boxes"`
	Detections    int     `json:"detections"`
	TruePositives int     `json:"true_positives"`
	Curve         Curve   `json:"curve"`
}

// Report is the evaluation of a dataset.
type Report struct {
	// MAP is the mean of AP over the classes that have ground truth.
	MAP        float64       `json:"map"`
	PerClass   []ClassReport `json:"per_class"`
	Images     int           `json:"images"`
	TruthBoxes int           `json:"truth_boxes"`
	Detections int           `json:"detections"`
}
