// Package yolo - decodes YOLO grid predictions into image coordinate detections.
package yolo

import (
	"github.com/chewxy/math32"
)

// GridToImage maps a grid-relative center to absolute image pixels.
//
// Cells are numbered row-major: col = cellIndex % gridW, row = cellIndex / gridW.
// offsetX and offsetY are expected to be sigmoid outputs in [0, 1) but are not
// clamped.
//
// Arguments:
//   - cellIndex: The row-major index of the cell.
//   - offsetX, offsetY: The position of the center within the cell.
//   - gridW, gridH: The grid dimensions.
//   - imageW, imageH: The image (or patch) dimensions in pixels.
//
// Returns:
//   - The absolute center (x, y) in pixels.
func GridToImage(cellIndex int, offsetX, offsetY float32, gridW, gridH, imageW, imageH int) (float32, float32) {
	col := cellIndex % gridW
	row := cellIndex / gridW
	x := (offsetX + float32(col)) * float32(imageW) / float32(gridW)
	y := (offsetY + float32(row)) * float32(imageH) / float32(gridH)
	return x, y
}

// DecodeWH maps raw width and height encodings to absolute pixels using an
// anchor given in grid-cell units.
//
// Arguments:
//   - tw, th: The raw (pre-exponential) width and height.
//   - anchor: The anchor the encoding is relative to.
//   - imageW, gridW, imageH, gridH: Image and grid dimensions.
//
// Returns:
//   - The absolute width and height in pixels.
func DecodeWH(tw, th float32, anchor Anchor, imageW, gridW, imageH, gridH int) (float32, float32) {
	w := math32.Exp(tw) * anchor.W * float32(imageW) / float32(gridW)
	h := math32.Exp(th) * anchor.H * float32(imageH) / float32(gridH)
	return w, h
}

// Sigmoid is the logistic function.
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Softmax returns the normalised exponentials of logits. The maximum is
// subtracted first so large logits do not overflow.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	peak := logits[Argmax(logits)]

	out := make([]float32, len(logits))
	var sum float32
	for i, v := range logits {
		out[i] = math32.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Argmax returns the index of the largest value, the lowest index on ties,
// and -1 for an empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
