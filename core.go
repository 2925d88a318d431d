package treeture

import "sync/atomic"

// taskState is a task's position in the monotone state machine
// New -> Blocked -> Ready -> Running -> Aggregating -> Done.
type taskState int32

const (
	stateNew taskState = iota
	stateBlocked
	stateReady
	stateRunning
	stateAggregating
	stateDone
)

func (s taskState) String() string {
	switch s {
	case stateNew:
		return "New"
	case stateBlocked:
		return "Blocked"
	case stateReady:
		return "Ready"
	case stateRunning:
		return "Running"
	case stateAggregating:
		return "Aggregating"
	case stateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// defaultEagerSplitDepth is the default depth cutoff below which a released splittable
// task is eagerly split before its synthetic release dependency is
// forgiven, and below which a newly-ready task is placed deterministically
// rather than on the scheduling worker. Exposed as a tunable WorkerPool
// option since the right cutoff depends on tree shape and worker count.
const defaultEagerSplitDepth = 4

// taskCore is the type-erased engine behind Task[T]: the full state
// machine, the family/path/id triple, the split/substitute protocol, and
// the parent/child links. It knows nothing about the value type T a task
// produces — that lives in Task[T] and is bridged in through executeFn and
// aggregateFn in place of a class hierarchy.
type taskCore struct {
	family *TaskFamily
	path   TaskPath
	id     TaskID

	state         atomic.Int32
	numActiveDeps atomic.Int32
	aliveChildren atomic.Int32
	substituted   atomic.Bool
	splittable    bool
	sequential    bool

	left, right *taskCore
	substitute  atomic.Pointer[taskCore]
	parent      atomic.Pointer[taskCore]

	// executeFn runs a leaf task's body. Set for plain and splittable leaf
	// tasks; nil for split nodes and for tasks created already Done.
	executeFn func(w *Worker)
	// aggregateFn finalises the produced value: for a leaf it copies the
	// value execute() already computed, for a split-merge it combines the
	// two children's values, for a substituted task it moves the value out
	// of the substitute. Always set.
	aggregateFn func()
	// trySplitFn decomposes a splittable leaf into a substitute task. Set
	// iff splittable is true.
	trySplitFn func(w *Worker) *taskCore

	// pendingDeps holds dependencies declared with After at construction
	// time, applied once start() runs and a real worker is available to
	// drive any immediately-satisfied dependency's notification.
	pendingDeps Dependencies

	name string // debug label, not part of any invariant
}

func newOrphanTaskCore() *taskCore {
	t := &taskCore{}
	t.numActiveDeps.Store(1) // the synthetic release dependency
	return t
}

// newDoneTaskCore returns a task already in state Done, bypassing the state
// machine entirely — the Go equivalent of TaskBase(done=true) in the
// reference implementation.
func newDoneTaskCore() *taskCore {
	t := &taskCore{}
	t.state.Store(int32(stateDone))
	return t
}

func isValidTransition(from, to taskState) bool {
	switch {
	case from == stateNew && to == stateBlocked:
		return true
	case from == stateBlocked && to == stateReady:
		return true
	case from == stateReady && to == stateRunning:
		return true
	case from == stateRunning && to == stateAggregating:
		return true
	case from == stateAggregating && to == stateDone:
		return true
	default:
		return false
	}
}

func (t *taskCore) getState() taskState {
	return taskState(t.state.Load())
}

func (t *taskCore) setState(s taskState) {
	from := t.getState()
	invariantWrap(isValidTransition(from, s), ErrIllegalTransition, "treeture: %s -> %s for task %s", from, s, t.debugID())
	if s == stateReady {
		invariant(t.numActiveDeps.Load() == 0 || t.substituted.Load(),
			"treeture: task %s reached Ready with %d active dependencies remaining", t.debugID(), t.numActiveDeps.Load())
	}
	t.state.Store(int32(s))
}

func (t *taskCore) debugID() string {
	if t.family == nil {
		return "orphan"
	}
	return t.id.String()
}

func (t *taskCore) depth() int {
	return t.path.Length()
}

func (t *taskCore) isSplitNode() bool {
	return t.left != nil || t.right != nil
}

// isDone reports whether this specific task object has finished. Unlike
// isReady, it does not forward to the substitute: a substituted task's own
// state field only reaches Done once finish() runs on it, which happens
// exactly when the substitute finishes and notifies it via childDone.
func (t *taskCore) isDone() bool {
	return t.getState() == stateDone
}

// isReady forwards to the substitute, if any, since a substituted task is
// scheduled and run through its substitute rather than directly.
func (t *taskCore) isReady() bool {
	if sub := t.substitute.Load(); sub != nil {
		return sub.isReady()
	}
	return t.getState() == stateReady
}

func (t *taskCore) displayState() taskState {
	if sub := t.substitute.Load(); sub != nil {
		return sub.getState()
	}
	return t.getState()
}

// adopt joins this task (and, recursively, its substitute and children)
// into family at path. It is called by Release for a root-level task, and
// again inside split() when a substitute is produced. w is the worker driving the call, used only if adoption
// discovers this subtree is already done and must signal any dependents
// that registered against this path before adoption happened.
func (t *taskCore) adopt(w *Worker, family *TaskFamily, path TaskPath) {
	invariantWrap(t.family == nil, ErrUnreleasedTask, "treeture: cannot adopt a task that already belongs to a family")
	if family == nil {
		return
	}
	t.family = family
	t.path = path
	t.id = TaskID{FamilyID: family.ID(), Path: path}

	if t.isDone() {
		family.markDone(w, path)
	}
	if sub := t.substitute.Load(); sub != nil {
		sub.adopt(w, family, path)
	}
	if t.left != nil {
		t.left.adopt(w, family, path.DescendLeft())
	}
	if t.right != nil {
		t.right.adopt(w, family, path.DescendRight())
	}
}

// addDependencies increments the dependency counter by len(deps) and
// registers a waiter for every not-yet-done dependency; already-done
// dependencies are resolved immediately without allocating a waiter cell.
func (t *taskCore) addDependencies(w *Worker, deps Dependencies) {
	if len(deps.refs) == 0 {
		return
	}
	invariant(t.getState() == stateNew, "treeture: addDependencies called after task left the New state")
	t.numActiveDeps.Add(int32(len(deps.refs)))
	for _, ref := range deps.refs {
		if ref.IsDone() {
			t.dependencyDone(w)
			continue
		}
		ref.family.addDependency(w, t, ref.path)
	}
}

// start is the New -> Blocked transition, issued exactly once per task at
// release time. If the task is splittable and shallow enough, it is
// eagerly split before its synthetic release dependency is forgiven.
func (t *taskCore) start(w *Worker) {
	invariant(t.getState() == stateNew, "treeture: start() called on a task not in New state")
	t.addDependencies(w, t.pendingDeps)
	t.pendingDeps = Dependencies{}
	t.setState(stateBlocked)

	if t.family != nil && t.splittable && t.depth() < w.pool.eagerSplitDepth && t.split(w) {
		return
	}
	t.dependencyDone(w)
}

// split enacts the substitute protocol: obtain a substitute from
// trySplitFn, adopt it at this task's path, link it, forgive the
// remaining dependencies, and either finish immediately (substitute
// already done) or start the substitute.
func (t *taskCore) split(w *Worker) bool {
	invariant(t.splittable, "treeture: split() called on a non-splittable task")
	sub := t.trySplitFn(w)
	invariant(sub != nil, "treeture: splittable task produced a nil substitute")
	subState := sub.getState()
	invariant(subState == stateNew || subState == stateDone,
		"treeture: substitute must be New or Done, got %s", subState)

	sub.adopt(w, t.family, t.path)
	sub.parent.Store(t)
	t.substitute.Store(sub)
	t.substituted.Store(true)
	t.numActiveDeps.Store(0)

	if t.getState() == stateBlocked {
		t.setState(stateReady)
	}
	t.setState(stateRunning)

	if sub.isDone() {
		t.finish(w)
	} else {
		sub.start(w)
	}
	return true
}

// dependencyDone decrements the active-dependency counter. A pre-decrement
// value below one means this task was substituted after the counter was
// already forgiven and a stale notification arrived late; anything else
// observing that is a fatal underflow. The thread that observes the count
// hit exactly zero is the exclusive thread that transitions Blocked to
// Ready and schedules the task.
func (t *taskCore) dependencyDone(w *Worker) {
	newVal := t.numActiveDeps.Add(-1)
	oldVal := newVal + 1

	if oldVal < 1 {
		invariant(t.substituted.Load(), "treeture: dependency count underflow on non-substituted task %s", t.debugID())
		t.numActiveDeps.Store(0)
		return
	}
	if oldVal != 1 {
		return
	}

	invariant(t.getState() != stateNew, "treeture: last dependency released on a task still in New state")
	invariant(t.getState() == stateBlocked, "treeture: last dependency released on a task not in Blocked state")
	t.setState(stateReady)
	t.becomeReady(w)
}

// becomeReady places a newly-ready task on a worker queue: shallow,
// family-scoped tasks are placed deterministically so that top-level work
// spreads across the pool before any stealing happens; everything else is
// scheduled on the worker that is currently making progress.
func (t *taskCore) becomeReady(w *Worker) {
	pool := w.pool
	depth := t.depth()
	if t.family != nil && depth < pool.eagerSplitDepth {
		idx := 0
		if depth > 0 {
			idx = int((t.path.asInt() * uint64(pool.NumWorkers())) / (uint64(1) << uint(depth)))
		}
		pool.workers[idx].schedule(t)
		return
	}
	w.schedule(t)
}

// run drives a Ready task to completion: substituted tasks wait
// productively for their substitute, split nodes drive their children,
// and leaves execute their body.
func (t *taskCore) run(w *Worker) {
	if t.substituted.Load() {
		t.wait(w)
		invariant(t.isDone(), "treeture: substituted task not done after waiting on its substitute")
		invariant(t.substitute.Load() == nil, "treeture: substitute link not cleared after finish")
		return
	}

	invariant(t.getState() == stateReady, "treeture: run() called on task not in Ready state")
	invariant(t.numActiveDeps.Load() == 0, "treeture: run() called with active dependencies remaining")
	t.setState(stateRunning)

	if t.isSplitNode() {
		t.runSplit(w)
		return
	}

	t.executeFn(w)
	t.finish(w)
}

func (t *taskCore) runSplit(w *Worker) {
	if t.sequential {
		if t.left != nil {
			if t.left.getState() == stateNew {
				t.left.start(w)
			}
			t.left.wait(w)
		}
		if t.right != nil {
			if t.right.getState() == stateNew {
				t.right.start(w)
			}
			t.right.wait(w)
		}
		t.finish(w)
		return
	}

	leftNew := t.left != nil && t.left.getState() == stateNew
	rightNew := t.right != nil && t.right.getState() == stateNew
	newCount := int32(0)
	if leftNew {
		newCount++
	}
	if rightNew {
		newCount++
	}
	if newCount == 0 {
		t.finish(w)
		return
	}

	t.aliveChildren.Store(newCount)
	if leftNew {
		t.left.parent.Store(t)
		t.left.start(w)
	}
	if rightNew {
		t.right.parent.Store(t)
		t.right.start(w)
	}
	t.wait(w)
	invariant(t.isDone(), "treeture: parallel split task not done after waiting on its children")
}

// finish runs the variant-specific aggregation hook, releases children and
// substitute, marks the state machine Done, notifies the family, and
// notifies the parent (exactly once) that this child is done.
func (t *taskCore) finish(w *Worker) {
	invariant(t.getState() == stateRunning, "treeture: finish() called on task not in Running state")
	t.setState(stateAggregating)
	t.aggregateFn()
	t.left = nil
	t.right = nil
	t.substitute.Store(nil)
	t.setState(stateDone)

	if t.family != nil {
		t.family.markDone(w, t.path)
	}
	if p := t.parent.Load(); p != nil {
		t.parent.Store(nil)
		p.childDone(w, t)
	}
}

// childDone dispatches on the identity of the finished child: the
// substitute triggers this task's own finish, a split child decrements the
// alive-child counter and finishes this task once both are done, and
// anything else is a protocol violation.
func (t *taskCore) childDone(w *Worker, child *taskCore) {
	if t.substitute.Load() == child {
		state := t.getState()
		invariant(state == stateReady || state == stateRunning, "treeture: substitute completion on task in unexpected state %s", state)
		t.finish(w)
		return
	}

	invariant(t.getState() == stateRunning, "treeture: split-child completion on task not in Running state")
	invariant(t.left == child || t.right == child, "treeture: childDone called by an unrelated task")

	if t.aliveChildren.Add(-1) != 0 {
		return
	}
	t.finish(w)
}

// wait keeps the calling worker productive: rather than blocking, it
// repeatedly attempts to make progress on the worker's own schedule until
// this task reaches Done.
func (t *taskCore) wait(w *Worker) {
	invariant(t.getState() != stateNew, "treeture: wait() called on a task that was never started")
	for !t.isDone() {
		w.scheduleStep()
	}
}
