// Package models - registry for models.
package models

import (
	"github.com/nvr-ai/go-phenodet/models/model"
	"github.com/nvr-ai/go-phenodet/models/yolo"
	"github.com/pkg/errors"
)

// NewModel creates a detection model instance based on the requested name.
//
// This is the single dispatch point for model variants, so adding a new
// detector means adding a case here rather than another copy of the
// postprocessing pipeline.
//
// Arguments:
//   - args: Identifies the model.
//   - cfg: The postprocessing configuration.
//
// Returns:
//   - model.Model: A configured model.
//   - error: If the name is unsupported or cfg is invalid.
//
// Example:
//
// ```go
//
//	m, err := NewModel(model.NewModelArgs{Name: model.ModelNameYOLO}, yolo.DefaultConfig())
//	if err != nil {
//	    log.Fatalf("Failed to create detection model: %v", err)
//	}
//	detections, err := m.PostProcess(output)
//
// ```
func NewModel(args model.NewModelArgs, cfg yolo.Config) (model.Model, error) {
	switch args.Name {
	case model.ModelNameYOLO, "":
		m, err := yolo.NewModel(args, cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Errorf("unsupported model name: %s", args.Name)
	}
}
