package treeture

import (
	"sync"
	"time"
)

// predictorMaxDepth bounds the per-depth EWMA table. Splittable tasks
// deeper than this share the deepest tracked estimate, which is fine in
// practice since eager splitting never lets a family-scoped task reach
// this deep before the lazy threshold takes over.
const predictorMaxDepth = 32

// predictorSmoothing is the EWMA smoothing constant applied to each new
// measurement: newEstimate = alpha*sample + (1-alpha)*oldEstimate. 0.2
// favours stability over reacting to one-off outlier measurements, which
// matters here because a single slow steal (cache-cold, or racing a GC
// pause) should not immediately convince the scheduler this depth is
// expensive forever.
const predictorSmoothing = 0.2

// RuntimePredictor keeps a per-depth exponentially weighted moving average
// of measured leaf task runtimes, used to decide whether a splittable task
// is worth decomposing further or cheap enough to just run.
type RuntimePredictor struct {
	mu        sync.Mutex
	estimates [predictorMaxDepth]time.Duration
	seen      [predictorMaxDepth]bool
}

// NewRuntimePredictor returns a predictor with no history: Predict returns
// a conservative "always split" estimate for any depth it hasn't measured
// yet.
func NewRuntimePredictor() *RuntimePredictor {
	return &RuntimePredictor{}
}

func clampDepth(depth int) int {
	if depth < 0 {
		return 0
	}
	if depth >= predictorMaxDepth {
		return predictorMaxDepth - 1
	}
	return depth
}

// Record folds a new measured runtime for tasks at depth into the
// per-depth estimate.
func (p *RuntimePredictor) Record(depth int, d time.Duration) {
	depth = clampDepth(depth)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen[depth] {
		p.estimates[depth] = d
		p.seen[depth] = true
		return
	}
	old := p.estimates[depth]
	p.estimates[depth] = time.Duration(predictorSmoothing*float64(d) + (1-predictorSmoothing)*float64(old))
}

// Predict returns the current runtime estimate for tasks at depth. A depth
// with no recorded measurement yet predicts splitThreshold+1, biasing the
// scheduler toward splitting unmeasured work at least once so the
// predictor can learn its true cost.
func (p *RuntimePredictor) Predict(depth int) time.Duration {
	depth = clampDepth(depth)
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen[depth] {
		return splitThreshold + 1
	}
	return p.estimates[depth]
}
