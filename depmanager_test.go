package treeture

import (
	"sync"
	"sync/atomic"
	"testing"
)

// recordingWaiter counts how many times it was notified, used to assert
// single-shot delivery.
type recordingWaiter struct {
	n atomic.Int32
}

func (w *recordingWaiter) dependencyDone(*Worker) {
	w.n.Add(1)
}

func TestDependencyManagerImmediateSignalWhenAlreadyDone(t *testing.T) {
	m := newDependencyManager(4)
	m.markComplete(nil, RootPath())

	w := &recordingWaiter{}
	m.addDependency(nil, w, RootPath())
	if got := w.n.Load(); got != 1 {
		t.Fatalf("waiter notified %d times, want 1", got)
	}
}

func TestDependencyManagerNotifiesRegisteredWaiter(t *testing.T) {
	m := newDependencyManager(4)
	path := RootPath().DescendLeft()

	w := &recordingWaiter{}
	m.addDependency(nil, w, path)
	if w.n.Load() != 0 {
		t.Fatal("waiter notified before completion")
	}
	m.markComplete(nil, path)
	if got := w.n.Load(); got != 1 {
		t.Fatalf("waiter notified %d times, want 1", got)
	}
}

func TestDependencyManagerPropagatesToDescendants(t *testing.T) {
	m := newDependencyManager(4)
	child := RootPath().DescendLeft().DescendRight()

	w := &recordingWaiter{}
	m.addDependency(nil, w, child)
	m.markComplete(nil, RootPath().DescendLeft())

	if got := w.n.Load(); got != 1 {
		t.Fatalf("descendant waiter notified %d times, want 1", got)
	}
	if !m.isComplete(child) {
		t.Fatal("descendant path not marked complete after ancestor completion")
	}
}

func TestDependencyManagerMarkCompleteIsIdempotent(t *testing.T) {
	m := newDependencyManager(3)
	path := RootPath().DescendRight()

	w := &recordingWaiter{}
	m.addDependency(nil, w, path)
	m.markComplete(nil, path)
	m.markComplete(nil, path)

	if got := w.n.Load(); got != 1 {
		t.Fatalf("waiter notified %d times across two markComplete calls, want 1", got)
	}
}

func TestDependencyManagerConcurrentAddAndComplete(t *testing.T) {
	m := newDependencyManager(5)
	path := RootPath().DescendLeft().DescendLeft()

	const n = 200
	var wg sync.WaitGroup
	waiters := make([]*recordingWaiter, n)
	for i := 0; i < n; i++ {
		waiters[i] = &recordingWaiter{}
	}

	wg.Add(n + 1)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			m.addDependency(nil, waiters[i], path)
		}()
	}
	go func() {
		defer wg.Done()
		m.markComplete(nil, path)
	}()
	wg.Wait()

	for i, w := range waiters {
		if got := w.n.Load(); got != 1 {
			t.Fatalf("waiter %d notified %d times, want exactly 1", i, got)
		}
	}
}

func TestDependencyManagerBeyondDepthClampsToAncestor(t *testing.T) {
	m := newDependencyManager(2)
	deep := RootPath().DescendLeft().DescendLeft().DescendLeft()

	// Registering beyond depth clamps to the deepest addressable ancestor;
	// completing that ancestor must still resolve it.
	w := &recordingWaiter{}
	m.addDependency(nil, w, deep)
	m.markComplete(nil, RootPath().DescendLeft())
	if got := w.n.Load(); got != 1 {
		t.Fatalf("waiter notified %d times, want 1", got)
	}
}
