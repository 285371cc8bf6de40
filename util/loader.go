package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-phenodet/evaluation"
	"github.com/nvr-ai/go-phenodet/images"
	"github.com/nvr-ai/go-phenodet/models/model"
	"github.com/pkg/errors"
)

// TruthBox is a labelled box as it appears in a bundle file.
type TruthBox struct {
	X1    float32 `json:"x1"`
	Y1    float32 `json:"y1"`
	X2    float32 `json:"x2"`
	Y2    float32 `json:"y2"`
	Class int     `json:"class"`
}

// BundleImage is the raw network output of one image with its labels.
type BundleImage struct {
	// Name identifies the image in logs and reports.
	Name string `json:"name"`
	// Output is the flat network output for the whole image.
	Output []float32 `json:"output,omitempty"`
	// Patches holds one flat network output per patch, in patch index order.
	Patches [][]float32 `json:"patches,omitempty"`
	// GroundTruth are the labelled boxes in image pixels.
	GroundTruth []TruthBox `json:"ground_truth"`
	// Frame is the frame number parsed from a frame-<n>.json file name.
	Frame int `json:"-"`
}

// Truth converts the labelled boxes for evaluation.
func (b BundleImage) Truth() []evaluation.GroundTruth {
	truth := make([]evaluation.GroundTruth, len(b.GroundTruth))
	for i, t := range b.GroundTruth {
		truth[i] = evaluation.GroundTruth{
			Box:   images.Rect{X1: t.X1, Y1: t.Y1, X2: t.X2, Y2: t.Y2},
			Class: t.Class,
		}
	}
	return truth
}

// Bundle is an evaluation dataset: raw outputs plus ground truth.
type Bundle struct {
	Images []BundleImage `json:"images"`
}

func (b *Bundle) validate() error {
	for i := range b.Images {
		img := &b.Images[i]
		if img.Name == "" {
			img.Name = fmt.Sprintf("image-%d", i)
		}
		if (len(img.Output) == 0) == (len(img.Patches) == 0) {
			return errors.Errorf("image %q must have exactly one of output or patches", img.Name)
		}
	}
	return nil
}

// Detect runs the postprocessing of m over the image.
func (b BundleImage) Detect(m model.Model) (evaluation.Image, error) {
	var err error
	entry := evaluation.Image{Name: b.Name, Truth: b.Truth()}
	if len(b.Patches) > 0 {
		entry.Detections, err = m.PostProcessPatches(b.Patches)
	} else {
		entry.Detections, err = m.PostProcess(b.Output)
	}
	if err != nil {
		return evaluation.Image{}, errors.Wrapf(err, "failed to postprocess %s", b.Name)
	}
	return entry, nil
}

// Detect runs the postprocessing of m over every image in the bundle.
//
// Arguments:
//   - m: The model whose postprocessing is applied.
//
// Returns:
//   - []evaluation.Image: One entry per bundle image, in bundle order.
//   - error: The first decode error, naming the image.
func (b *Bundle) Detect(m model.Model) ([]evaluation.Image, error) {
	dataset := make([]evaluation.Image, 0, len(b.Images))
	for _, img := range b.Images {
		entry, err := img.Detect(m)
		if err != nil {
			return nil, err
		}
		dataset = append(dataset, entry)
	}
	return dataset, nil
}

// LoadBundle reads a bundle from a JSON file, or from a directory of
// per-image frame-<n>.json files.
//
// Arguments:
//   - path: A bundle file or directory.
//
// Returns:
//   - *Bundle: The bundle.
//   - error: Error if loading fails.
func LoadBundle(path string) (*Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	if info.IsDir() {
		return LoadBundleDirectory(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if err := bundle.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid bundle %s", path)
	}
	return &bundle, nil
}

// LoadBundleDirectory reads every frame-<n>.json file in dir, each holding
// one BundleImage, ordered by frame number. Other files are ignored.
//
// Arguments:
//   - dir: Directory path containing the frame files.
//
// Returns:
//   - *Bundle: The bundle.
//   - error: Error if loading fails.
func LoadBundleDirectory(dir string) (*Bundle, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	var bundle Bundle
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" || !strings.HasPrefix(file.Name(), "frame-") {
			continue
		}

		path := filepath.Join(dir, file.Name())
		frame, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file.Name(), "frame-"), ".json"))
		if err != nil {
			return nil, errors.Wrapf(err, "bad frame number in %s", path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		var img BundleImage
		if err := json.Unmarshal(data, &img); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
		if img.Name == "" {
			img.Name = strings.TrimSuffix(file.Name(), ".json")
		}
		img.Frame = frame
		bundle.Images = append(bundle.Images, img)
	}

	sort.Slice(bundle.Images, func(i, j int) bool {
		return bundle.Images[i].Frame < bundle.Images[j].Frame
	})

	if err := bundle.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid bundle %s", dir)
	}
	return &bundle, nil
}
