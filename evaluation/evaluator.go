package evaluation

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/nvr-ai/go-phenodet/logger"
	"github.com/nvr-ai/go-phenodet/models/yolo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Evaluator scores a dataset of per-image detections against ground truth.
type Evaluator struct {
	// NumClasses bounds the class indices accepted in ground truth and
	// detections.
	NumClasses int
	// Correctness is the minimum IoU for a detection to match a box.
	Correctness float32
	// NumWorkers is the number of goroutines matching images. Zero means
	// runtime.NumCPU().
	NumWorkers int
	// Logger defaults to logger.Log().
	Logger *zap.Logger
}

// NewEvaluator builds an evaluator from a detector configuration.
func NewEvaluator(cfg yolo.Config, log *zap.Logger) *Evaluator {
	return &Evaluator{
		NumClasses:  cfg.Grid.NumClasses,
		Correctness: cfg.Thresholds.Correctness,
		NumWorkers:  cfg.Workers,
		Logger:      log,
	}
}

func (e *Evaluator) logger() *zap.Logger {
	if e.Logger == nil {
		return logger.Log()
	}
	return e.Logger
}

func (e *Evaluator) workers(jobs int) int {
	n := e.NumWorkers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

// check rejects class indices the evaluator was not configured for.
func (e *Evaluator) check(dataset []Image) error {
	if e.NumClasses <= 0 {
		return errors.Wrapf(ErrClassMismatch, "evaluator has %d classes", e.NumClasses)
	}
	for _, img := range dataset {
		for i, gt := range img.Truth {
			if gt.Class < 0 || gt.Class >= e.NumClasses {
				return errors.Wrapf(ErrClassMismatch, "image %q ground truth %d has class %d, expected [0, %d)",
					img.Name, i, gt.Class, e.NumClasses)
			}
		}
		for i, det := range img.Detections {
			if det.Class < 0 || det.Class >= e.NumClasses {
				return errors.Wrapf(ErrClassMismatch, "image %q detection %d has class %d, expected [0, %d)",
					img.Name, i, det.Class, e.NumClasses)
			}
		}
	}
	return nil
}

// Evaluate computes the mean average precision of a dataset.
//
// Images are matched independently on a pool of workers; the records are
// then pooled per class in dataset order, so the report does not depend on
// the number of workers. mAP is the mean AP over the classes that have ground
// truth, and 0 when no class does or when there are no detections at all.
//
// Arguments:
//   - dataset: The images to evaluate.
//
// Returns:
//   - The report.
//   - An error wrapping ErrClassMismatch if a class index is out of range.
func (e *Evaluator) Evaluate(dataset []Image) (Report, error) {
	log := e.logger()
	start := time.Now()

	if err := e.check(dataset); err != nil {
		return Report{}, err
	}

	perImage := make([][]Record, len(dataset))
	jobs := make(chan int, len(dataset))
	var wg sync.WaitGroup

	for w := 0; w < e.workers(len(dataset)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				perImage[i] = MatchImage(dataset[i].Truth, dataset[i].Detections, e.Correctness)
			}
		}()
	}
	for i := range dataset {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := Report{Images: len(dataset)}
	truthPerClass := make(map[int]int)
	recordsPerClass := make(map[int][]Record)

	for i, img := range dataset {
		for _, gt := range img.Truth {
			if !gt.Box.Valid() {
				log.Warn("degenerate ground truth box has zero IoU with every detection",
					zap.String("image", img.Name), zap.Stringer("box", gt.Box))
			}
			truthPerClass[gt.Class]++
		}
		for _, r := range perImage[i] {
			recordsPerClass[r.Class] = append(recordsPerClass[r.Class], r)
		}
		report.TruthBoxes += len(img.Truth)
		report.Detections += len(img.Detections)
	}

	if report.Detections == 0 || report.TruthBoxes == 0 {
		log.Warn("nothing to score, mAP is 0",
			zap.Int("truth_boxes", report.TruthBoxes), zap.Int("detections", report.Detections))
		return report, nil
	}

	classes := make([]int, 0, len(truthPerClass))
	for class := range truthPerClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	for class, records := range recordsPerClass {
		if truthPerClass[class] == 0 {
			log.Warn("detections of a class without ground truth are ignored",
				zap.Int("class", class), zap.Int("detections", len(records)))
		}
	}

	sum := 0.0
	for _, class := range classes {
		records := recordsPerClass[class]
		ap, curve := AveragePrecision(records, truthPerClass[class])

		tp := 0
		for _, r := range records {
			if r.TruePositive {
				tp++
			}
		}

		report.PerClass = append(report.PerClass, ClassReport{
			Class:         class,
			AP:            ap,
			TruthBoxes:    truthPerClass[class],
			Detections:    len(records),
			TruePositives: tp,
			Curve:         curve,
		})
		sum += ap

		log.Debug("class scored",
			zap.Int("class", class), zap.Float64("ap", ap), zap.Int("true_positives", tp))
	}
	report.MAP = sum / float64(len(classes))

	log.Info("evaluation complete",
		zap.Int("images", report.Images),
		zap.Int("truth_boxes", report.TruthBoxes),
		zap.Int("detections", report.Detections),
		zap.Float64("map", report.MAP),
		zap.Duration("elapsed", time.Since(start)))

	return report, nil
}
