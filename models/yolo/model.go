// Package yolo - YOLO model.
package yolo

import (
	"github.com/nvr-ai/go-phenodet/models/model"
	"github.com/nvr-ai/go-phenodet/models/postprocess"
	"gorgonia.org/tensor"
)

// Options is the options for the YOLO model.
type Options struct {
	Name   model.Name   `json:"name" yaml:"name"`
	Family model.Family `json:"family" yaml:"family"`
	Path   string       `json:"path" yaml:"path"`
	Config Config       `json:"-" yaml:"-"`
}

// IsOptions marks Options as model options.
func (Options) IsOptions() {}

// YOLO is the instance of the YOLO model.
type YOLO struct {
	options Options
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model.
//   - cfg: The postprocessing configuration.
//
// Returns:
//   - The model, or an error if cfg is invalid.
func NewModel(args model.NewModelArgs, cfg Config) (*YOLO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &YOLO{
		options: Options{
			Name:   model.ModelNameYOLO,
			Family: model.ModelFamilyYOLO,
			Path:   args.Path,
			Config: cfg,
		},
	}, nil
}

// Options returns the options for the YOLO model.
//
// Returns:
//   - The options for the YOLO model.
func (m *YOLO) Options() model.Options {
	return m.options
}

// Config returns the postprocessing configuration.
func (m *YOLO) Config() Config {
	return m.options.Config
}

// PostProcess decodes one whole-image output and suppresses duplicates.
//
// Arguments:
//   - output: The flat network output for the image.
//
// Returns:
//   - The filtered detections.
//   - error: A *ShapeError if output has the wrong length.
func (m *YOLO) PostProcess(output []float32) ([]postprocess.Result, error) {
	cfg := m.options.Config
	candidates, err := Decode(output, cfg.Grid, cfg.Anchors, cfg.Thresholds.Detection)
	if err != nil {
		return nil, err
	}
	return postprocess.ApplyGreedyNMS(candidates, cfg.NMSConfig()), nil
}

// PostProcessPatches decodes the outputs of every patch of one image, stitches
// them into the image frame and suppresses duplicates across the whole image.
//
// Arguments:
//   - outputs: One flat network output per patch, in patch order.
//
// Returns:
//   - The filtered detections in image coordinates.
//   - error: A *ShapeError if the patch count or any output length is wrong.
func (m *YOLO) PostProcessPatches(outputs [][]float32) ([]postprocess.Result, error) {
	cfg := m.options.Config
	candidates, err := DecodePatches(outputs, cfg)
	if err != nil {
		return nil, err
	}
	return postprocess.ApplyGreedyNMS(candidates, cfg.NMSConfig()), nil
}

// PostProcessTensor is PostProcess for an output held in a tensor.
func (m *YOLO) PostProcessTensor(t tensor.Tensor) ([]postprocess.Result, error) {
	data, err := TensorData(t)
	if err != nil {
		return nil, err
	}
	return m.PostProcess(data)
}
