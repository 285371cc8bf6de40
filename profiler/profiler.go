// Package profiler - timing of pipeline stages.
package profiler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	Name      string
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// Mean returns the average duration, 0 if nothing was recorded.
func (t TimeTracker) Mean() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.TotalTime / time.Duration(t.Count)
}

// Profiler records how long named operations take. It is safe for
// concurrent use.
type Profiler struct {
	mu             sync.Mutex
	startTime      time.Time
	operationTimes map[string]*TimeTracker
}

// New creates a profiler whose clock starts now.
func New() *Profiler {
	return &Profiler{
		startTime:      time.Now(),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one completed operation.
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			Name:    name,
			MinTime: duration,
			MaxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.TotalTime += duration
	tracker.Count++

	if duration < tracker.MinTime {
		tracker.MinTime = duration
	}
	if duration > tracker.MaxTime {
		tracker.MaxTime = duration
	}
}

// Operations returns a snapshot of every tracker, sorted by name.
func (p *Profiler) Operations() []TimeTracker {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]TimeTracker, 0, len(p.operationTimes))
	for _, t := range p.operationTimes {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Log writes one debug entry per operation and the total run time.
func (p *Profiler) Log(log *zap.Logger) {
	for _, t := range p.Operations() {
		log.Debug("operation timing",
			zap.String("operation", t.Name),
			zap.Int64("count", t.Count),
			zap.Duration("total", t.TotalTime),
			zap.Duration("mean", t.Mean()),
			zap.Duration("min", t.MinTime),
			zap.Duration("max", t.MaxTime))
	}
	log.Info("run finished", zap.Duration("uptime", time.Since(p.startTime)))
}
