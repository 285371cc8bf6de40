package yolo

import (
	"os"

	"github.com/nvr-ai/go-phenodet/models/postprocess"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultDetectionThreshold is the objectness a cell must exceed to produce a candidate.
	DefaultDetectionThreshold = 0.6
	// DefaultOverlapThreshold is the IoU above which NMS suppresses a candidate.
	DefaultOverlapThreshold = postprocess.DefaultOverlapThreshold
	// DefaultCorrectnessThreshold is the IoU a detection needs to match a ground truth box.
	DefaultCorrectnessThreshold = 0.5
)

// ErrInvalidConfig is the cause of every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid yolo configuration")

// GridSpec describes the output grid of the network and the pixel frame its
// predictions are decoded into.
type GridSpec struct {
	Width       int `json:"width" yaml:"width"`
	Height      int `json:"height" yaml:"height"`
	NumClasses  int `json:"num_classes" yaml:"num_classes"`
	NumBoxes    int `json:"num_boxes" yaml:"num_boxes"`
	ImageWidth  int `json:"image_width" yaml:"image_width"`
	ImageHeight int `json:"image_height" yaml:"image_height"`
}

// ScaleX is the width of one grid cell in pixels.
func (g GridSpec) ScaleX() float32 {
	return float32(g.ImageWidth) / float32(g.Width)
}

// ScaleY is the height of one grid cell in pixels.
func (g GridSpec) ScaleY() float32 {
	return float32(g.ImageHeight) / float32(g.Height)
}

// NumCells returns the number of grid cells.
func (g GridSpec) NumCells() int {
	return g.Width * g.Height
}

// CellStride is the length of one cell's prediction vector: five values per
// anchor followed by the class logits.
func (g GridSpec) CellStride() int {
	return g.NumBoxes*5 + g.NumClasses
}

// OutputLen is the expected length of a flat network output for one image.
func (g GridSpec) OutputLen() int {
	return g.NumCells() * g.CellStride()
}

// Thresholds used across decoding, suppression and evaluation. All in [0, 1].
type Thresholds struct {
	Detection   float32 `json:"detection" yaml:"detection"`
	Overlap     float32 `json:"overlap" yaml:"overlap"`
	Correctness float32 `json:"correctness" yaml:"correctness"`
}

// DefaultThresholds returns 0.6 / 0.3 / 0.5.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Detection:   DefaultDetectionThreshold,
		Overlap:     DefaultOverlapThreshold,
		Correctness: DefaultCorrectnessThreshold,
	}
}

// Tiling describes how a large image was cut into fixed-size patches. The zero
// value means the image was processed whole.
type Tiling struct {
	PatchWidth   int `json:"patch_width" yaml:"patch_width"`
	PatchHeight  int `json:"patch_height" yaml:"patch_height"`
	PatchesHoriz int `json:"patches_horiz" yaml:"patches_horiz"`
	PatchesVert  int `json:"patches_vert" yaml:"patches_vert"`
}

// Enabled reports whether any tiling parameter is set.
func (t Tiling) Enabled() bool {
	return t != Tiling{}
}

// NumPatches returns the number of patches per image.
func (t Tiling) NumPatches() int {
	return t.PatchesHoriz * t.PatchesVert
}

// Config is the complete, validated postprocessing configuration. It is a
// value: build it once with NewConfig or LoadConfig and pass it explicitly.
type Config struct {
	Grid       GridSpec
	Anchors    AnchorSet
	Thresholds Thresholds
	Tiling     Tiling
	// Labels optionally names the classes, one per class index.
	Labels []string
	// Workers is the number of goroutines used to match images during
	// evaluation. Zero uses one per CPU.
	Workers int
}

// DefaultConfig returns a single-class 7x7 grid over 448x448 images with the
// default anchors and thresholds.
//
// Returns:
//   - Config: A valid configuration.
//
// @example
// cfg := DefaultConfig()
// results, err := Decode(output, cfg.Grid, cfg.Anchors, cfg.Thresholds.Detection)
func DefaultConfig() Config {
	cfg, err := NewConfig(GridSpec{
		Width:       7,
		Height:      7,
		NumClasses:  1,
		ImageWidth:  448,
		ImageHeight: 448,
	}, NewAnchorSet(DefaultAnchors...), DefaultThresholds(), Tiling{})
	if err != nil {
		panic(err)
	}
	return cfg
}

// NewConfig assembles and validates a configuration. grid.NumBoxes is derived
// from the anchor count.
//
// Arguments:
//   - grid: The grid and image dimensions.
//   - anchors: The anchor set, in grid-cell units.
//   - thresholds: The detection, overlap and correctness thresholds.
//   - tiling: The patch layout, or the zero value.
//
// Returns:
//   - Config: The configuration.
//   - error: An ErrInvalidConfig-caused error describing the first problem found.
func NewConfig(grid GridSpec, anchors AnchorSet, thresholds Thresholds, tiling Tiling) (Config, error) {
	grid.NumBoxes = anchors.Len()
	cfg := Config{
		Grid:       grid,
		Anchors:    anchors,
		Thresholds: thresholds,
		Tiling:     tiling,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every parameter and fails on the first problem.
func (c Config) Validate() error {
	g := c.Grid
	switch {
	case g.Width <= 0 || g.Height <= 0:
		return errors.Wrapf(ErrInvalidConfig, "grid must be positive, got %dx%d", g.Width, g.Height)
	case g.ImageWidth <= 0 || g.ImageHeight <= 0:
		return errors.Wrapf(ErrInvalidConfig, "image size must be positive, got %dx%d", g.ImageWidth, g.ImageHeight)
	case g.NumClasses < 1:
		return errors.Wrapf(ErrInvalidConfig, "need at least one class, got %d", g.NumClasses)
	case c.Anchors.Len() == 0:
		return errors.Wrap(ErrInvalidConfig, "anchor list is empty")
	case g.NumBoxes != c.Anchors.Len():
		return errors.Wrapf(ErrInvalidConfig, "grid expects %d boxes per cell but %d anchors are set", g.NumBoxes, c.Anchors.Len())
	}

	for i, a := range c.Anchors.anchors {
		if a.W <= 0 || a.H <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "anchor %d has non-positive size %s", i, a)
		}
	}

	for _, th := range []struct {
		name  string
		value float32
	}{
		{"detection", c.Thresholds.Detection},
		{"overlap", c.Thresholds.Overlap},
		{"correctness", c.Thresholds.Correctness},
	} {
		// Written so that NaN fails too.
		if !(th.value >= 0 && th.value <= 1) {
			return errors.Wrapf(ErrInvalidConfig, "%s threshold %v outside [0, 1]", th.name, th.value)
		}
	}

	t := c.Tiling
	if t.Enabled() && (t.PatchWidth <= 0 || t.PatchHeight <= 0 || t.PatchesHoriz <= 0 || t.PatchesVert <= 0) {
		return errors.Wrapf(ErrInvalidConfig, "incomplete tiling %+v", t)
	}

	if len(c.Labels) > 0 && len(c.Labels) != g.NumClasses {
		return errors.Wrapf(ErrInvalidConfig, "%d labels for %d classes", len(c.Labels), g.NumClasses)
	}

	if c.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// PatchGrid returns the grid used to decode one patch: the same grid and
// anchors, with the patch as the pixel frame. Without tiling it is c.Grid.
func (c Config) PatchGrid() GridSpec {
	if !c.Tiling.Enabled() {
		return c.Grid
	}
	g := c.Grid
	g.ImageWidth = c.Tiling.PatchWidth
	g.ImageHeight = c.Tiling.PatchHeight
	return g
}

// NMSConfig returns the suppression settings implied by c.
func (c Config) NMSConfig() *postprocess.NMSConfig {
	return &postprocess.NMSConfig{
		IoUThreshold: c.Thresholds.Overlap,
		ClassAware:   true,
	}
}

// fileConfig is the YAML layout of a configuration file.
type fileConfig struct {
	Grid struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"grid"`
	Image struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"image"`
	Classes    *int        `yaml:"classes"`
	Anchors    [][]float32 `yaml:"anchors"`
	Thresholds struct {
		Detection   *float32 `yaml:"detection"`
		Overlap     *float32 `yaml:"overlap"`
		Correctness *float32 `yaml:"correctness"`
	} `yaml:"thresholds"`
	Tiling  Tiling   `yaml:"tiling"`
	Labels  []string `yaml:"labels"`
	Workers int      `yaml:"workers"`
}

// ParseConfig decodes a YAML configuration. Omitted thresholds, anchors and
// class count fall back to their defaults.
func ParseConfig(data []byte) (Config, error) {
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse yolo configuration")
	}

	anchors := NewAnchorSet(DefaultAnchors...)
	if len(f.Anchors) > 0 {
		pairs := make([][2]float32, len(f.Anchors))
		for i, a := range f.Anchors {
			if len(a) != 2 {
				return Config{}, errors.Wrapf(ErrInvalidConfig, "anchor %d must be a [w, h] pair, got %v", i, a)
			}
			pairs[i] = [2]float32{a[0], a[1]}
		}
		anchors = NewAnchorSetFromPairs(pairs)
	}

	thresholds := DefaultThresholds()
	if f.Thresholds.Detection != nil {
		thresholds.Detection = *f.Thresholds.Detection
	}
	if f.Thresholds.Overlap != nil {
		thresholds.Overlap = *f.Thresholds.Overlap
	}
	if f.Thresholds.Correctness != nil {
		thresholds.Correctness = *f.Thresholds.Correctness
	}

	classes := 1
	if f.Classes != nil {
		classes = *f.Classes
	}

	cfg, err := NewConfig(GridSpec{
		Width:       f.Grid.Width,
		Height:      f.Grid.Height,
		NumClasses:  classes,
		ImageWidth:  f.Image.Width,
		ImageHeight: f.Image.Height,
	}, anchors, thresholds, f.Tiling)
	if err != nil {
		return Config{}, err
	}

	cfg.Labels = f.Labels
	cfg.Workers = f.Workers
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read %s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to load %s", path)
	}
	return cfg, nil
}
