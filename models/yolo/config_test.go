package yolo

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Grid.NumBoxes)
	assert.Equal(t, 26, cfg.Grid.CellStride())
	assert.Equal(t, 7*7*26, cfg.Grid.OutputLen())
	assert.Equal(t, float32(64), cfg.Grid.ScaleX())
	assert.Equal(t, float32(64), cfg.Grid.ScaleY())
	assert.Equal(t, DefaultThresholds(), cfg.Thresholds)
	assert.False(t, cfg.Tiling.Enabled())
	assert.Equal(t, cfg.Grid, cfg.PatchGrid())

	nms := cfg.NMSConfig()
	assert.Equal(t, float32(0.3), nms.IoUThreshold)
	assert.True(t, nms.ClassAware)
}

func TestConfigValidate(t *testing.T) {
	grid := GridSpec{Width: 2, Height: 2, NumClasses: 1, ImageWidth: 100, ImageHeight: 100}
	anchors := NewAnchorSet(Anchor{W: 1, H: 1})

	tests := []struct {
		name       string
		grid       GridSpec
		anchors    AnchorSet
		thresholds Thresholds
		tiling     Tiling
		message    string
	}{
		{"zero grid width", GridSpec{Width: 0, Height: 2, NumClasses: 1, ImageWidth: 100, ImageHeight: 100}, anchors, DefaultThresholds(), Tiling{}, "grid must be positive"},
		{"negative grid height", GridSpec{Width: 2, Height: -1, NumClasses: 1, ImageWidth: 100, ImageHeight: 100}, anchors, DefaultThresholds(), Tiling{}, "grid must be positive"},
		{"zero image", GridSpec{Width: 2, Height: 2, NumClasses: 1}, anchors, DefaultThresholds(), Tiling{}, "image size must be positive"},
		{"no classes", GridSpec{Width: 2, Height: 2, ImageWidth: 100, ImageHeight: 100}, anchors, DefaultThresholds(), Tiling{}, "at least one class"},
		{"empty anchors", grid, NewAnchorSet(), DefaultThresholds(), Tiling{}, "anchor list is empty"},
		{"flat anchor", grid, NewAnchorSet(Anchor{W: 1, H: 0}), DefaultThresholds(), Tiling{}, "non-positive size"},
		{"detection above one", grid, anchors, Thresholds{Detection: 1.5, Overlap: 0.3, Correctness: 0.5}, Tiling{}, "detection threshold"},
		{"negative overlap", grid, anchors, Thresholds{Detection: 0.6, Overlap: -0.1, Correctness: 0.5}, Tiling{}, "overlap threshold"},
		{"NaN correctness", grid, anchors, Thresholds{Detection: 0.6, Overlap: 0.3, Correctness: float32(math.NaN())}, Tiling{}, "correctness threshold"},
		{"incomplete tiling", grid, anchors, DefaultThresholds(), Tiling{PatchWidth: 50}, "incomplete tiling"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.grid, tt.anchors, tt.thresholds, tt.tiling)
			require.Error(t, err)
			assert.Equal(t, ErrInvalidConfig, errors.Cause(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	_, err := NewConfig(grid, anchors, Thresholds{Detection: 0, Overlap: 1, Correctness: 1}, Tiling{})
	assert.NoError(t, err, "threshold bounds are inclusive")
}

func TestParseConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
grid: {width: 13, height: 9}
image: {width: 416, height: 288}
classes: 2
anchors:
  - [1.0, 1.5]
  - [3.2, 2.1]
thresholds:
  detection: 0.4
  overlap: 0.45
  correctness: 0.7
tiling:
  patch_width: 416
  patch_height: 288
  patches_horiz: 3
  patches_vert: 2
labels: [rosette, weed]
workers: 4
`))
		require.NoError(t, err)
		assert.Equal(t, GridSpec{Width: 13, Height: 9, NumClasses: 2, NumBoxes: 2, ImageWidth: 416, ImageHeight: 288}, cfg.Grid)
		assert.Equal(t, [][2]float32{{1, 1.5}, {3.2, 2.1}}, cfg.Anchors.Pairs())
		assert.Equal(t, Thresholds{Detection: 0.4, Overlap: 0.45, Correctness: 0.7}, cfg.Thresholds)
		assert.Equal(t, 6, cfg.Tiling.NumPatches())
		assert.Equal(t, []string{"rosette", "weed"}, cfg.Labels)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("defaults fill the gaps", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
grid: {width: 7, height: 7}
image: {width: 448, height: 448}
thresholds:
  detection: 0
`))
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Grid.NumClasses)
		assert.Equal(t, len(DefaultAnchors), cfg.Anchors.Len())
		assert.Equal(t, float32(0), cfg.Thresholds.Detection)
		assert.Equal(t, float32(DefaultOverlapThreshold), cfg.Thresholds.Overlap)
		assert.Equal(t, float32(DefaultCorrectnessThreshold), cfg.Thresholds.Correctness)
	})

	t.Run("bad anchor pair", func(t *testing.T) {
		_, err := ParseConfig([]byte(`
grid: {width: 7, height: 7}
image: {width: 448, height: 448}
anchors: [[1.0, 2.0, 3.0]]
`))
		require.Error(t, err)
		assert.Equal(t, ErrInvalidConfig, errors.Cause(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("grid: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("explicit zero classes", func(t *testing.T) {
		_, err := ParseConfig([]byte(`
grid: {width: 7, height: 7}
image: {width: 448, height: 448}
classes: 0
`))
		require.Error(t, err)
		assert.Equal(t, ErrInvalidConfig, errors.Cause(err))
		assert.Contains(t, err.Error(), "at least one class")
	})

	t.Run("label count must match classes", func(t *testing.T) {
		_, err := ParseConfig([]byte(`
grid: {width: 7, height: 7}
image: {width: 448, height: 448}
classes: 2
labels: [rosette]
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 labels for 2 classes")
	})

	t.Run("negative workers", func(t *testing.T) {
		_, err := ParseConfig([]byte(`
grid: {width: 7, height: 7}
image: {width: 448, height: 448}
workers: -2
`))
		require.Error(t, err)
		assert.Equal(t, ErrInvalidConfig, errors.Cause(err))
	})
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yolo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid: {width: 2, height: 2}\nimage: {width: 100, height: 100}\nanchors: [[1, 1]]\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.Grid.OutputLen())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
