package yolo

import (
	"testing"

	"github.com/nvr-ai/go-phenodet/images"
	"github.com/nvr-ai/go-phenodet/models/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestYOLO_PostProcess(t *testing.T) {
	cfg := scenarioConfig(t)
	m, err := NewModel(model.NewModelArgs{Path: "plants.onnx"}, cfg)
	require.NoError(t, err)

	options, ok := m.Options().(Options)
	require.True(t, ok)
	assert.Equal(t, model.ModelNameYOLO, options.Name)
	assert.Equal(t, model.ModelFamilyYOLO, options.Family)
	assert.Equal(t, "plants.onnx", options.Path)

	// The same rosette straddles the border of cells 0 and 1. Cell 0 sees it
	// at (45, 25), cell 1 at (52, 25); both 30 pixels wide.
	output := buildOutput(cfg.Grid, map[int][]encoding{
		0: {{offX: 0.9, offY: 0.5, scaleW: 0.6, scaleH: 0.6, conf: 0.8}},
		1: {{offX: 0.04, offY: 0.5, scaleW: 0.6, scaleH: 0.6, conf: 0.95}},
		3: {{offX: 0.5, offY: 0.5, scaleW: 0.4, scaleH: 0.4, conf: 0.7}},
	}, nil)

	detections, err := m.PostProcess(output)
	require.NoError(t, err)
	require.Len(t, detections, 2)

	assert.InDelta(t, 0.95, detections[0].Score, 1e-5)
	assert.InDelta(t, 52, detections[0].Box.Center().CX, 1e-3)
	assert.InDelta(t, 0.7, detections[1].Score, 1e-5)
	assertRect(t, images.Rect{X1: 65, Y1: 65, X2: 85, Y2: 85}, detections[1].Box)

	fromTensor, err := m.PostProcessTensor(tensor.New(tensor.WithShape(2, 2, 6), tensor.WithBacking(output)))
	require.NoError(t, err)
	assert.Equal(t, detections, fromTensor)

	_, err = m.PostProcess(output[:10])
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
}

func TestYOLO_PostProcessPatches(t *testing.T) {
	cfg := tiledConfig(t)
	m, err := NewModel(model.NewModelArgs{}, cfg)
	require.NoError(t, err)
	grid := cfg.PatchGrid()

	// One plant cut by the patch border: patch 0 sees it centered at (45, 25),
	// patch 1 at local (3, 25), i.e. (53, 25) in the image. IoU 240/560.
	left := buildOutput(grid, map[int][]encoding{
		0: {{offX: 0.9, offY: 0.5, scaleW: 0.4, scaleH: 0.4, conf: 0.85}},
	}, nil)
	right := buildOutput(grid, map[int][]encoding{
		0: {{offX: 0.06, offY: 0.5, scaleW: 0.4, scaleH: 0.4, conf: 0.75}},
	}, nil)

	candidates, err := DecodePatches([][]float32{left, right}, cfg)
	require.NoError(t, err)
	require.Len(t, candidates, 2, "each patch reports the plant on its own")

	detections, err := m.PostProcessPatches([][]float32{left, right})
	require.NoError(t, err)
	require.Len(t, detections, 1, "suppression runs across the patch border")
	assert.InDelta(t, 0.85, detections[0].Score, 1e-5)
	assertRect(t, images.Rect{X1: 35, Y1: 15, X2: 55, Y2: 35}, detections[0].Box)
}

func TestNewModel_InvalidConfig(t *testing.T) {
	_, err := NewModel(model.NewModelArgs{}, Config{})
	require.Error(t, err)
}
