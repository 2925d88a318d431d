package treeture

import (
	"math/rand"
	"runtime"
	"sync"
	"time"
)

// splitThreshold is the predicted-runtime cutoff above which a splittable
// ready task is split rather than run directly. The reference runtime
// expresses this as a cycle count (~3,000,000 cycles); Go has no portable
// cycle counter, so it is expressed here as a wall-clock duration against
// a nominal 1GHz reference clock, which is the same order of magnitude and
// keeps the predictor's Record/Predict pair working entirely in
// time.Duration.
const splitThreshold = 3 * time.Millisecond

// maxQueueLength is the targeted maximum length of a worker's local queue.
// It is a guideline rather than a hard cap: schedule() only starts
// diverting new work away from a full queue once it is exceeded, and only
// signals other workers that work is available once the queue holds more
// than half of it.
const maxQueueLength = 8

// Worker is one scheduling unit: a persistent goroutine (or, for worker 0,
// the calling goroutine) draining its own double-ended queue and stealing
// from siblings when it runs dry. Every taskCore method that needs
// scheduling context takes a *Worker explicitly, standing in for the
// thread-local "current worker" pointer the reference implementation
// relies on — Go has no goroutine-local storage, and each worker executes
// task bodies synchronously on its own stack, so passing w through is both
// sufficient and idiomatic.
type Worker struct {
	id   int
	pool *WorkerPool
	rng  *rand.Rand

	mu    sync.Mutex
	queue []*taskCore
}

func newWorker(id int, pool *WorkerPool) *Worker {
	return &Worker{
		id:   id,
		pool: pool,
		rng:  rand.New(rand.NewSource(int64(id) + 1)),
	}
}

// ID reports the worker's index within its pool, mainly for logging and
// profiling events.
func (w *Worker) ID() int {
	return w.id
}

// schedule appends t to the back of this worker's queue (the end thieves
// take from; the owner drains the front) and signals the pool that work is available once the queue holds enough of
// it to be worth waking a sibling for. Any worker may call this on any
// other worker: becomeReady placement and cross-worker child scheduling
// both rely on it.
//
// A singleton pool, or a queue already over maxQueueLength, runs t inline
// on the calling goroutine instead of queuing it, exactly as it would be
// run once popped — this is what lets a single-worker pool make progress
// at all (nothing else will ever drain its queue) and keeps a saturated
// worker's queue from growing without bound. In a singleton pool every
// task, split nodes included, runs inline. Otherwise only a task that is
// not itself a split node is diverted this way: running a split node
// inline would recursively start its children through this same worker
// while the worker is still on the call stack that produced them,
// risking deadlock if either child ever needs to be stolen to progress.
func (w *Worker) schedule(t *taskCore) {
	w.mu.Lock()
	if w.pool.NumWorkers() == 1 || (len(w.queue) > maxQueueLength && !t.isSplitNode()) {
		w.mu.Unlock()
		w.runTask(t)
		return
	}
	w.queue = append(w.queue, t)
	qlen := len(w.queue)
	w.mu.Unlock()

	if qlen > maxQueueLength/2 {
		w.pool.wake()
	}
}

// popOwn removes and returns the oldest task from the front of this
// worker's own queue (FIFO), or nil if the queue is empty. schedule
// appends new work at the back, so the owner draining the front runs its
// own work in the order it was posted.
func (w *Worker) popOwn() *taskCore {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil
	}
	t := w.queue[0]
	copy(w.queue, w.queue[1:])
	w.queue[len(w.queue)-1] = nil
	w.queue = w.queue[:len(w.queue)-1]
	return t
}

// stealOne removes and returns the most recently pushed task from the back
// of this worker's queue, or nil if empty. A thief takes from the same end
// schedule appends to, opposite the owner's draining end, which reduces
// contention with the owner and tends to steal the finest-grained (most
// recently split) work still on the queue.
func (w *Worker) stealOne() *taskCore {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.queue)
	if n == 0 {
		return nil
	}
	t := w.queue[n-1]
	w.queue[n-1] = nil
	w.queue = w.queue[:n-1]
	return t
}

// scheduleStep performs one unit of scheduling progress: run a locally
// queued task if there is one, otherwise attempt a single steal from a
// random sibling. It returns false only when there was nothing to do; the
// run loop counts consecutive false results and suspends after
// idleSpinLimit of them.
func (w *Worker) scheduleStep() bool {
	if t := w.popOwn(); t != nil {
		w.dispatch(t)
		return true
	}
	if victim := w.randomVictim(); victim != nil {
		if t := victim.stealOne(); t != nil {
			w.pool.emit(Event{Type: TaskStolen, WorkerID: w.id, TaskID: t.id})
			w.dispatch(t)
			return true
		}
	}
	return false
}

func (w *Worker) randomVictim() *Worker {
	n := len(w.pool.workers)
	if n <= 1 {
		return nil
	}
	idx := w.rng.Intn(n)
	if idx == w.id {
		idx = (idx + 1) % n
	}
	return w.pool.workers[idx]
}

// dispatch decides, for a ready task pulled off a queue, whether it is
// worth splitting further before running it.
func (w *Worker) dispatch(t *taskCore) {
	if t.splittable && !t.substituted.Load() && w.shouldSplit(t) {
		t.split(w)
		return
	}
	w.runTask(t)
}

// shouldSplit reports whether a splittable ready task should be
// decomposed rather than run directly: depth 0 always splits (there is no
// useful predicted cost yet and refusing to split the root would leave
// the rest of the pool idle), everything else compares the runtime
// predictor's estimate for this depth against splitThreshold.
func (w *Worker) shouldSplit(t *taskCore) bool {
	depth := t.depth()
	if depth == 0 {
		return true
	}
	return w.pool.predictor.Predict(depth) > splitThreshold
}

// runTask executes a task's run() method. Leaf (non-split,
// non-substituted) tasks are bracketed by TaskStarted/TaskEnded events, and
// those at depth > 0 are timed to feed the runtime predictor. Depth 0 is
// not timed because its cost is not what a splittable task's split
// decision is estimating.
func (w *Worker) runTask(t *taskCore) {
	if t.isSplitNode() || t.substituted.Load() {
		t.run(w)
		return
	}

	w.pool.emit(Event{Type: TaskStarted, WorkerID: w.id, TaskID: t.id})
	start := time.Now()
	t.run(w)
	if t.depth() > 0 {
		w.pool.predictor.Record(t.depth(), time.Since(start))
	}
	w.pool.emit(Event{Type: TaskEnded, WorkerID: w.id, TaskID: t.id})
}

// idleSpinLimit bounds how many consecutive empty schedule steps a worker
// takes before it actually parks. schedule() only wakes a sleeping worker
// once a queue crosses half of maxQueueLength, so a worker must keep
// re-checking its own queue for a while on its own before sleeping —
// otherwise a task placed directly onto a queue that never crosses that
// threshold could sit there with nobody left to notice it.
const idleSpinLimit = 10000

// run is the worker's main loop, driving background workers (every worker
// but the pool root) until the pool is shut down.
func (w *Worker) run() {
	w.pool.emit(Event{Type: WorkerCreated, WorkerID: w.id})
	idle := 0
	for {
		if w.scheduleStep() {
			idle = 0
			continue
		}
		idle++
		if idle < idleSpinLimit {
			runtime.Gosched()
			continue
		}
		idle = 0
		if w.pool.suspend(w) {
			w.pool.emit(Event{Type: WorkerDestroyed, WorkerID: w.id})
			return
		}
	}
}
