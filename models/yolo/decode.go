package yolo

import (
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-phenodet/images"
	"github.com/nvr-ai/go-phenodet/models/postprocess"
)

// DecodeCell turns one cell's prediction vector into at most one candidate.
//
// The anchor with the highest sigmoid confidence is responsible for the cell
// (lowest index on ties). If that confidence does not exceed the detection
// threshold the cell yields nothing. Otherwise its encoding is decoded against
// that anchor and the cell's class is the argmax of its logits. A NaN
// confidence never clears the threshold.
//
// cell must hold a full stride; a shorter cell yields nothing.
//
// Arguments:
//   - cell: The prediction vector, of length grid.CellStride().
//   - cellIndex: The row-major index of the cell.
//   - grid: The grid and the pixel frame to decode into.
//   - anchors: The anchor set, one per box in the cell.
//   - threshold: The detection threshold.
//
// Returns:
//   - The candidate, and whether the cell produced one.
func DecodeCell(cell []float32, cellIndex int, grid GridSpec, anchors AnchorSet, threshold float32) (postprocess.Result, bool) {
	if grid.NumBoxes < 1 || len(cell) < grid.CellStride() {
		return postprocess.Result{}, false
	}

	confidences := make([]float32, grid.NumBoxes)
	for b := range confidences {
		conf := Sigmoid(cell[b*5+4])
		if math32.IsNaN(conf) {
			conf = 0
		}
		confidences[b] = conf
	}

	best := Argmax(confidences)
	if !(confidences[best] > threshold) {
		return postprocess.Result{}, false
	}

	enc := cell[best*5 : best*5+5]
	cx, cy := GridToImage(cellIndex, Sigmoid(enc[0]), Sigmoid(enc[1]), grid.Width, grid.Height, grid.ImageWidth, grid.ImageHeight)
	w, h := DecodeWH(enc[2], enc[3], anchors.At(best), grid.ImageWidth, grid.Width, grid.ImageHeight, grid.Height)

	logits := cell[grid.NumBoxes*5 : grid.NumBoxes*5+grid.NumClasses]

	return postprocess.Result{
		Box:           images.CenterToCorners(cx, cy, w, h),
		Score:         confidences[best],
		Class:         Argmax(logits),
		Probabilities: Softmax(logits),
	}, true
}

// Decode converts a flat network output for one image (or one patch) into
// candidates, scanning cells in row-major order.
//
// Arguments:
//   - output: The flat output, cell after cell, of length grid.OutputLen().
//   - grid: The grid and the pixel frame to decode into.
//   - anchors: The anchor set.
//   - threshold: The detection threshold.
//
// Returns:
//   - The candidates, in cell order.
//   - error: A *ShapeError if output has the wrong length.
func Decode(output []float32, grid GridSpec, anchors AnchorSet, threshold float32) ([]postprocess.Result, error) {
	if len(output) != grid.OutputLen() {
		return nil, &ShapeError{What: "network output", Expected: grid.OutputLen(), Actual: len(output)}
	}

	stride := grid.CellStride()
	results := make([]postprocess.Result, 0, grid.NumCells())
	for i := 0; i < grid.NumCells(); i++ {
		if r, ok := DecodeCell(output[i*stride:(i+1)*stride], i, grid, anchors, threshold); ok {
			results = append(results, r)
		}
	}
	return results, nil
}
