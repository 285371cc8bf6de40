// Command phenodet decodes raw detector outputs, filters them and scores the
// detections against ground truth.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akamensky/argparse"
	"github.com/google/uuid"
	"github.com/nvr-ai/go-phenodet/evaluation"
	"github.com/nvr-ai/go-phenodet/logger"
	"github.com/nvr-ai/go-phenodet/models"
	"github.com/nvr-ai/go-phenodet/models/model"
	"github.com/nvr-ai/go-phenodet/models/postprocess"
	"github.com/nvr-ai/go-phenodet/models/yolo"
	"github.com/nvr-ai/go-phenodet/profiler"
	"github.com/nvr-ai/go-phenodet/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Detection is one line of the detections file.
type Detection struct {
	Image      string  `json:"image"`
	X1         float32 `json:"x1"`
	Y1         float32 `json:"y1"`
	X2         float32 `json:"x2"`
	Y2         float32 `json:"y2"`
	Confidence float32 `json:"confidence"`
	Class      int     `json:"class"`
	Label      string  `json:"label"`
}

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	parser := argparse.NewParser("phenodet", "Decode, filter and evaluate plant detections")
	configPath := parser.String("c", "config", &argparse.Options{Help: "Detector YAML configuration", Required: true})
	bundlePath := parser.String("b", "bundle", &argparse.Options{Help: "Evaluation bundle file or frame directory", Required: true})
	detectionsPath := parser.String("", "detections", &argparse.Options{Help: "Write filtered detections to this JSON file"})
	minScore := parser.Float("", "min-score", &argparse.Options{Help: "Only write detections scoring above this", Default: 0.0})
	dev := parser.Flag("", "dev", &argparse.Options{Help: "Human readable debug logging"})
	if err := parser.Parse(args); err != nil {
		return errors.New(parser.Usage(err))
	}

	initLogger := logger.InitProduction
	if *dev {
		initLogger = logger.InitDevelopment
	}
	if err := initLogger(); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer logger.Sync()

	log := logger.Log().With(zap.String("run", uuid.New().String()))
	prof := profiler.New()
	defer prof.Log(log)

	done := prof.StartOperation("load_config")
	cfg, err := yolo.LoadConfig(*configPath)
	done()
	if err != nil {
		return err
	}
	log.Info("configuration loaded",
		zap.String("path", *configPath),
		zap.Int("grid_width", cfg.Grid.Width),
		zap.Int("grid_height", cfg.Grid.Height),
		zap.Int("classes", cfg.Grid.NumClasses),
		zap.Int("anchors", cfg.Anchors.Len()),
		zap.Bool("tiled", cfg.Tiling.Enabled()))

	labels := cfg.Labels
	if len(labels) == 0 {
		labels = models.PlantClasses
	}
	classes, err := models.NewOutputClassSet(model.ModelFamilyYOLO, labels...)
	if err != nil {
		return errors.Wrap(err, "invalid labels")
	}

	detector, err := models.NewModel(model.NewModelArgs{Name: model.ModelNameYOLO, Family: model.ModelFamilyYOLO}, cfg)
	if err != nil {
		return err
	}

	done = prof.StartOperation("load_bundle")
	bundle, err := util.LoadBundle(*bundlePath)
	done()
	if err != nil {
		return err
	}
	log.Info("bundle loaded", zap.String("path", *bundlePath), zap.Int("images", len(bundle.Images)))

	dataset := make([]evaluation.Image, 0, len(bundle.Images))
	for _, img := range bundle.Images {
		done = prof.StartOperation("postprocess")
		entry, err := img.Detect(detector)
		done()
		if err != nil {
			return err
		}
		log.Debug("image postprocessed", zap.String("image", entry.Name), zap.Int("detections", len(entry.Detections)))
		dataset = append(dataset, entry)
	}

	if *detectionsPath != "" {
		if err := writeDetections(*detectionsPath, dataset, classes, float32(*minScore)); err != nil {
			return err
		}
		log.Info("detections written", zap.String("path", *detectionsPath))
	}

	done = prof.StartOperation("evaluate")
	report, err := evaluation.NewEvaluator(cfg, log).Evaluate(dataset)
	done()
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "mAP: %.4f (%d images, %d ground truth boxes, %d detections)\n",
		report.MAP, report.Images, report.TruthBoxes, report.Detections)
	for _, c := range report.PerClass {
		fmt.Fprintf(stdout, "  %-12s AP %.4f  (%d/%d matched, %d detections)\n",
			classes.Label(c.Class), c.AP, c.TruePositives, c.TruthBoxes, c.Detections)
	}
	return nil
}

func writeDetections(path string, dataset []evaluation.Image, classes *models.OutputClassSet, minScore float32) error {
	out := []Detection{}
	for _, img := range dataset {
		for _, d := range postprocess.FilterByScore(img.Detections, minScore) {
			out = append(out, Detection{
				Image:      img.Name,
				X1:         d.Box.X1,
				Y1:         d.Box.Y1,
				X2:         d.Box.X2,
				Y2:         d.Box.Y2,
				Confidence: d.Score,
				Class:      d.Class,
				Label:      classes.Label(d.Class),
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
