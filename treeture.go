package treeture

// UnreleasedTreeture is a fully constructed but not yet scheduled
// computation. Building the tree (Spawn, SpawnSplit, Done, Sequential,
// Parallel, Combine) and starting it (Release) are separate steps so a
// caller can attach dependencies with After before anything can run.
//
// An UnreleasedTreeture must be released exactly once, and only once: pass
// it into exactly one of Release or another combinator (Sequential,
// Parallel, Combine, or a SpawnSplit split callback) that will itself be
// released. Doing both — releasing it directly and also embedding it as a
// child elsewhere — double-adopts the underlying task and panics.
type UnreleasedTreeture[T any] struct {
	task *Task[T]
}

// Treeture is a handle to a task that has been released into a worker
// pool's scheduler. Its value is available once the task completes.
type Treeture[T any] struct {
	core *taskCore
	task *Task[T]
}

// Release starts the computation on w's pool: dependencies declared with
// After are attached, the task is adopted into a freshly allocated family,
// and its New -> Blocked transition fires.
func (u UnreleasedTreeture[T]) Release(w *Worker) Treeture[T] {
	core := u.task.core
	invariantWrap(core.family == nil && (core.getState() == stateNew || core.isDone()), ErrUnreleasedTask, "treeture: Release() called on an already-released task")

	if core.family == nil {
		core.adopt(w, newTaskFamily(0), RootPath())
	}
	if !core.isDone() {
		core.start(w)
	}
	return Treeture[T]{core: core, task: u.task}
}

// Get blocks the calling worker, keeping it productive, until the task
// completes, then returns its value and error.
func (t Treeture[T]) Get(w *Worker) (T, error) {
	t.core.wait(w)
	return t.task.Value()
}

// Wait blocks the calling worker, keeping it productive, until the task
// completes, discarding the value.
func (t Treeture[T]) Wait(w *Worker) {
	t.core.wait(w)
}

// IsDone reports whether the task has completed without blocking.
func (t Treeture[T]) IsDone() bool {
	return t.core.isDone()
}

// Reference erases the value type, yielding a handle usable as a
// dependency for other tasks via After.
func (t Treeture[T]) Reference() TaskReference {
	return referenceOf(t.core)
}

// GetLeft returns a reference to this task's left child path. Meaningful
// once the task has split; see TaskReference.GetLeft.
func (t Treeture[T]) GetLeft() TaskReference {
	return t.Reference().GetLeft()
}

// GetRight returns a reference to this task's right child path.
func (t Treeture[T]) GetRight() TaskReference {
	return t.Reference().GetRight()
}

// Done builds an already-complete computation carrying value.
func Done[T any](value T) UnreleasedTreeture[T] {
	return UnreleasedTreeture[T]{task: newDoneTask(value, nil)}
}

// DoneVoid builds an already-complete computation carrying no value,
// useful as a Sequential/Parallel branch that exists only for its
// side effects and error.
func DoneVoid() UnreleasedTreeture[struct{}] {
	return Done(struct{}{})
}

// Spawn builds a leaf computation from body, blocked on deps until
// released.
func Spawn[T any](deps Dependencies, body func(w *Worker) (T, error)) UnreleasedTreeture[T] {
	task := newLeafTask(body)
	task.core.pendingDeps = deps
	return UnreleasedTreeture[T]{task: task}
}

// SpawnSplit builds a leaf computation that may decompose itself: when the
// scheduler decides this task is worth splitting, split is invoked in
// place of body and is expected to return a fresh, not-yet-released
// subtree (typically produced by Combine or another SpawnSplit) to
// substitute for this task. Returning (zero, false) runs body instead.
func SpawnSplit[T any](deps Dependencies, body func(w *Worker) (T, error), split func(w *Worker) (UnreleasedTreeture[T], bool)) UnreleasedTreeture[T] {
	task := newSplittableTask(body, func(w *Worker) (*Task[T], bool) {
		sub, ok := split(w)
		if !ok {
			return nil, false
		}
		invariant(sub.task.core.getState() == stateNew, "treeture: SpawnSplit split callback returned an already-started subtree")
		return sub.task, true
	})
	task.core.pendingDeps = deps
	return UnreleasedTreeture[T]{task: task}
}

// Combine builds a computation that runs left and right as children of a
// single parent, then folds their results with merge once both are done.
// sequential forces right to start only after left completes; otherwise
// both are released together and may run on different workers.
func Combine[A, B, T any](deps Dependencies, left UnreleasedTreeture[A], right UnreleasedTreeture[B], sequential bool, merge func(A, B) (T, error)) UnreleasedTreeture[T] {
	task := newSplitTask(left.task, right.task, sequential, merge)
	task.core.pendingDeps = deps
	return UnreleasedTreeture[T]{task: task}
}

// Sequential runs left then right in order for their side effects,
// yielding the second's error if the first succeeded.
func Sequential[A, B any](left UnreleasedTreeture[A], right UnreleasedTreeture[B]) UnreleasedTreeture[struct{}] {
	return Combine(After(), left, right, true, func(A, B) (struct{}, error) {
		if left.task.err != nil {
			return struct{}{}, left.task.err
		}
		return struct{}{}, right.task.err
	})
}

// Parallel runs left and right concurrently for their side effects.
func Parallel[A, B any](left UnreleasedTreeture[A], right UnreleasedTreeture[B]) UnreleasedTreeture[struct{}] {
	return Combine(After(), left, right, false, func(A, B) (struct{}, error) {
		return struct{}{}, nil
	})
}
