package treeture

import (
	"sync"
)

// defaultPlacementDepth is the pool's default eagerSplitDepth. It equals
// defaultEagerSplitDepth: one knob governs both eager splitting and
// deterministic placement.
const defaultPlacementDepth = defaultEagerSplitDepth

// WorkerPool owns a fixed set of Workers, sized once at construction,
// generalized from a channel of closures (as in a plain fixed-size
// goroutine pool) to a per-worker work-stealing deque, since stealing
// requires picking an arbitrary victim's queue rather than draining a
// single shared channel.
type WorkerPool struct {
	workers []*Worker
	sink    Sink

	predictor *RuntimePredictor

	eagerSplitDepth int

	mu       sync.Mutex
	cond     *sync.Cond
	idle     int
	shutdown bool
	wg       sync.WaitGroup
	once     sync.Once
}

// PoolOption configures a WorkerPool at construction using the standard
// functional-options shape.
type PoolOption func(*WorkerPool)

// WithWorkers overrides the pool size. Zero or negative falls back to
// NUM_WORKERS / hardware concurrency, the same precedence
// numWorkersFromEnv already implements.
func WithWorkers(n int) PoolOption {
	return func(p *WorkerPool) {
		if n > 0 {
			p.workers = make([]*Worker, n)
		}
	}
}

// WithSink attaches a profiling Sink. A nil Sink is ignored, leaving the
// pool's default no-op sink in place.
func WithSink(sink Sink) PoolOption {
	return func(p *WorkerPool) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithEagerSplitDepth overrides the depth cutoff below which a splittable
// root-level task is split immediately at release, and below which a
// newly-ready task is placed deterministically across the pool rather
// than left on the scheduling worker's own queue.
func WithEagerSplitDepth(depth int) PoolOption {
	return func(p *WorkerPool) {
		if depth >= 0 {
			p.eagerSplitDepth = depth
		}
	}
}

// NewPool constructs a WorkerPool and starts its background workers.
// Worker 0 is reserved as the pool's root, driven by the calling goroutine
// through Root() rather than a background loop of its own.
func NewPool(opts ...PoolOption) *WorkerPool {
	p := &WorkerPool{
		sink:            noopSink{},
		predictor:       NewRuntimePredictor(),
		eagerSplitDepth: defaultPlacementDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers == nil {
		p.workers = make([]*Worker, numWorkersFromEnv())
	}
	p.cond = sync.NewCond(&p.mu)

	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
	}

	p.wg.Add(len(p.workers) - 1)
	for i := 1; i < len(p.workers); i++ {
		go func(w *Worker) {
			defer p.wg.Done()
			w.run()
		}(p.workers[i])
	}
	return p
}

// NumWorkers reports the pool's fixed worker count.
func (p *WorkerPool) NumWorkers() int {
	return len(p.workers)
}

// Root returns the worker bound to the calling goroutine. Only the
// goroutine that called NewPool should drive this worker's scheduleStep
// loop (via Wait/Get on a treeture); every other worker already has its
// own background goroutine.
func (p *WorkerPool) Root() *Worker {
	return p.workers[0]
}

// wake signals every suspended worker that new work may be available. A
// producer above half capacity has no way to know which idle worker, if
// any, is the one that will actually find something to steal, so it wakes
// them all rather than risk a Signal landing on a worker that steals
// nothing while a differently-idle sibling sleeps through the notification.
func (p *WorkerPool) wake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idle > 0 {
		p.cond.Broadcast()
	}
}

// suspend parks the calling worker until either new work might be
// available or the pool is shutting down. It returns true when the
// worker's run loop should exit. Events are emitted outside the lock, but
// only once the idle bookkeeping and the wait itself are already settled:
// nothing may unlock between incrementing idle and calling cond.Wait, or a
// concurrent wake() could signal before anyone is listening and the
// worker would sleep through it.
func (p *WorkerPool) suspend(w *Worker) bool {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return true
	}
	p.idle++
	p.cond.Wait()
	p.idle--
	shuttingDown := p.shutdown
	p.mu.Unlock()

	p.emit(Event{Type: WorkerSuspended, WorkerID: w.id})
	p.emit(Event{Type: WorkerResumed, WorkerID: w.id})
	return shuttingDown
}

// Shutdown stops every background worker and waits for their run loops to
// exit. It is safe to call more than once; only the first call has any
// effect.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		p.cond.Broadcast()
		p.mu.Unlock()
		p.wg.Wait()
	})
}
