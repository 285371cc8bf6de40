package yolo

import (
	"github.com/nvr-ai/go-phenodet/models/postprocess"
)

// Offset returns the top-left corner of a patch in the whole image. Patches
// are numbered row-major, left to right and then down.
func (t Tiling) Offset(patchIndex int) (float32, float32) {
	col := patchIndex % t.PatchesHoriz
	row := patchIndex / t.PatchesHoriz
	return float32(col * t.PatchWidth), float32(row * t.PatchHeight)
}

// StitchPatch moves detections from a patch's local frame into the whole
// image's frame. Both corners get the same offset. The input is not modified.
func StitchPatch(results []postprocess.Result, patchIndex int, tiling Tiling) []postprocess.Result {
	dx, dy := tiling.Offset(patchIndex)
	out := make([]postprocess.Result, len(results))
	for i, r := range results {
		r.Box = r.Box.Offset(dx, dy)
		out[i] = r
	}
	return out
}

// DecodePatches decodes one flat output per patch and pools the stitched
// candidates. No suppression happens here: the same plant can be cut by a
// patch border, so suppression has to run once over the pooled list.
//
// Arguments:
//   - outputs: One flat network output per patch, in patch order.
//   - cfg: The configuration; cfg.Tiling must be enabled.
//
// Returns:
//   - The candidates of all patches in image coordinates.
//   - error: A *ShapeError if the patch count or any output length is wrong.
func DecodePatches(outputs [][]float32, cfg Config) ([]postprocess.Result, error) {
	if !cfg.Tiling.Enabled() {
		return nil, &ShapeError{What: "patch outputs without tiling", Expected: 1, Actual: len(outputs)}
	}
	if len(outputs) != cfg.Tiling.NumPatches() {
		return nil, &ShapeError{What: "patch count", Expected: cfg.Tiling.NumPatches(), Actual: len(outputs)}
	}

	grid := cfg.PatchGrid()
	var pooled []postprocess.Result
	for i, output := range outputs {
		local, err := Decode(output, grid, cfg.Anchors, cfg.Thresholds.Detection)
		if err != nil {
			if se, ok := err.(*ShapeError); ok {
				se.What = "patch output"
			}
			return nil, err
		}
		pooled = append(pooled, StitchPatch(local, i, cfg.Tiling)...)
	}
	return pooled, nil
}
