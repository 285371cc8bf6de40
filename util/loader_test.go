package util

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-phenodet/evaluation"
	"github.com/nvr-ai/go-phenodet/images"
	"github.com/nvr-ai/go-phenodet/models/model"
	"github.com/nvr-ai/go-phenodet/models/yolo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// plantOutput is the output of a 1x1 grid, one anchor and one class that
// puts a 20 pixel box at the center of a 100x100 image with confidence 0.9.
func plantOutput() []float32 {
	w := float32(math.Log(0.2))
	return []float32{0, 0, w, w, float32(math.Log(9)), 0}
}

func plantModel(t *testing.T) model.Model {
	cfg, err := yolo.NewConfig(
		yolo.GridSpec{Width: 1, Height: 1, NumClasses: 1, ImageWidth: 100, ImageHeight: 100},
		yolo.NewAnchorSet(yolo.Anchor{W: 1, H: 1}), yolo.DefaultThresholds(), yolo.Tiling{})
	require.NoError(t, err)
	m, err := yolo.NewModel(model.NewModelArgs{}, cfg)
	require.NoError(t, err)
	return m
}

func writeJSON(t *testing.T, path string, v interface{}) {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestLoadBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	writeJSON(t, path, Bundle{Images: []BundleImage{
		{Name: "tray-01", Output: plantOutput(), GroundTruth: []TruthBox{{X1: 40, Y1: 40, X2: 60, Y2: 60}}},
		{Output: make([]float32, 6)},
	}})

	bundle, err := LoadBundle(path)
	require.NoError(t, err)
	require.Len(t, bundle.Images, 2)
	assert.Equal(t, "tray-01", bundle.Images[0].Name)
	assert.Equal(t, "image-1", bundle.Images[1].Name)
	assert.Equal(t, []evaluation.GroundTruth{{Box: images.Rect{X1: 40, Y1: 40, X2: 60, Y2: 60}}}, bundle.Images[0].Truth())

	dataset, err := bundle.Detect(plantModel(t))
	require.NoError(t, err)
	require.Len(t, dataset, 2)
	require.Len(t, dataset[0].Detections, 1)
	assert.Empty(t, dataset[1].Detections)

	got := dataset[0].Detections[0].Box
	assert.InDelta(t, 40, got.X1, 1e-3)
	assert.InDelta(t, 60, got.Y2, 1e-3)

	e := &evaluation.Evaluator{NumClasses: 1, Correctness: 0.5, Logger: zaptest.NewLogger(t)}
	report, err := e.Evaluate(dataset)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.MAP)
}

func TestLoadBundle_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		message string
	}{
		{"malformed", `{"images": [`, "failed to parse"},
		{"no output", `{"images": [{"name": "a"}]}`, "exactly one of output or patches"},
		{"both outputs", `{"images": [{"name": "a", "output": [1], "patches": [[1]]}]}`, "exactly one of output or patches"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadBundle(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	_, err := LoadBundle(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestLoadBundleDirectory(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "frame-10.json"), BundleImage{Output: plantOutput()})
	writeJSON(t, filepath.Join(dir, "frame-2.json"), BundleImage{Name: "second", Output: make([]float32, 6)})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	bundle, err := LoadBundle(dir)
	require.NoError(t, err)
	require.Len(t, bundle.Images, 2)
	assert.Equal(t, 2, bundle.Images[0].Frame)
	assert.Equal(t, "second", bundle.Images[0].Name)
	assert.Equal(t, 10, bundle.Images[1].Frame)
	assert.Equal(t, "frame-10", bundle.Images[1].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-x.json"), []byte("{}"), 0o600))
	_, err = LoadBundleDirectory(dir)
	require.Error(t, err)
}

func TestBundle_DetectShapeError(t *testing.T) {
	bundle := &Bundle{Images: []BundleImage{{Name: "short", Output: []float32{1, 2}}}}

	_, err := bundle.Detect(plantModel(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "short")

	var shapeErr *yolo.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}
