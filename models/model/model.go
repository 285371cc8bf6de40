// Package model - Definitions shared by every detection model.
package model

import (
	"github.com/nvr-ai/go-phenodet/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is the YOLO model family.
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLO is the name of the grid/anchor YOLO detector.
	ModelNameYOLO Name = "yolo"
)

// Options is a marker interface for model-specific options.
type Options interface {
	IsOptions()
}

// Model turns raw network output into filtered detections for one image.
type Model interface {
	Options() Options
	PostProcess(output []float32) ([]postprocess.Result, error)
	PostProcessPatches(outputs [][]float32) ([]postprocess.Result, error)
}

// NewModelArgs is the arguments for creating a new model.
type NewModelArgs struct {
	Name   Name   `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Family Family `json:"family" yaml:"family"`
}
