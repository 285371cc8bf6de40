// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-phenodet/images"
)

// Result represents a single candidate detection.
type Result struct {
	// The bounding box of the result, in corner form.
	Box images.Rect `json:"box" yaml:"box"`
	// The confidence score of the result, in [0, 1].
	Score float32 `json:"score" yaml:"score"`
	// The predicted class index of the result.
	Class int `json:"class" yaml:"class"`
	// Softmax over the class logits of the originating cell. Diagnostic only.
	Probabilities []float32 `json:"probabilities,omitempty" yaml:"probabilities,omitempty"`
}

func (r Result) String() string {
	return fmt.Sprintf("Object %d (confidence %f): %s", r.Class, r.Score, r.Box)
}
