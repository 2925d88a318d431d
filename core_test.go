package treeture

import (
	"errors"
	"testing"
)

func testPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	p := NewPool(WithWorkers(workers))
	t.Cleanup(p.Shutdown)
	return p
}

func TestLeafTaskRunsExactlyOnceAndReachesDone(t *testing.T) {
	pool := testPool(t, 2)
	var runs int
	task := Spawn(After(), func(w *Worker) (int, error) {
		runs++
		return 42, nil
	})
	rel := task.Release(pool.Root())
	v, err := rel.Get(pool.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("value = %d, want 42", v)
	}
	if runs != 1 {
		t.Fatalf("body ran %d times, want 1", runs)
	}
	if !rel.IsDone() {
		t.Fatal("task should be done after Get returns")
	}
}

func TestLeafTaskPropagatesBodyError(t *testing.T) {
	pool := testPool(t, 1)
	wantErr := errors.New("boom")
	task := Spawn(After(), func(w *Worker) (int, error) {
		return 0, wantErr
	}).Release(pool.Root())

	_, err := task.Get(pool.Root())
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestLeafTaskPanicBecomesBodyPanicError(t *testing.T) {
	pool := testPool(t, 1)
	task := Spawn(After(), func(w *Worker) (int, error) {
		panic("leaf exploded")
	}).Release(pool.Root())

	_, err := task.Get(pool.Root())
	var panicErr BodyPanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("err = %v, want BodyPanicError", err)
	}
	if panicErr.Value != "leaf exploded" {
		t.Fatalf("panic value = %v, want %q", panicErr.Value, "leaf exploded")
	}
}

func TestCombineWaitsForBothChildrenAndMerges(t *testing.T) {
	pool := testPool(t, 4)
	left := Spawn(After(), func(w *Worker) (int, error) { return 3, nil })
	right := Spawn(After(), func(w *Worker) (int, error) { return 4, nil })

	combined := Combine(After(), left, right, false, func(a, b int) (int, error) {
		return a + b, nil
	}).Release(pool.Root())

	v, err := combined.Get(pool.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("combined value = %d, want 7", v)
	}
}

func TestSequentialOrdersLeftBeforeRight(t *testing.T) {
	pool := testPool(t, 1)
	var order []string

	left := Spawn(After(), func(w *Worker) (int, error) {
		order = append(order, "left")
		return 1, nil
	})
	right := Spawn(After(), func(w *Worker) (int, error) {
		order = append(order, "right")
		return 2, nil
	})

	Sequential(left, right).Release(pool.Root()).Wait(pool.Root())

	if len(order) != 2 || order[0] != "left" || order[1] != "right" {
		t.Fatalf("execution order = %v, want [left right]", order)
	}
}

func TestDependencyGatesReadiness(t *testing.T) {
	pool := testPool(t, 2)

	var ranSecond bool
	first := Spawn(After(), func(w *Worker) (int, error) {
		return 1, nil
	}).Release(pool.Root())

	second := Spawn(After(first.Reference()), func(w *Worker) (int, error) {
		ranSecond = true
		return 2, nil
	}).Release(pool.Root())

	v, err := second.Get(pool.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 || !ranSecond {
		t.Fatal("dependent task did not run to completion")
	}
	if !first.IsDone() {
		t.Fatal("dependency should be done once the dependent has completed")
	}
}

func TestAlreadyDoneDependencyResolvesImmediately(t *testing.T) {
	pool := testPool(t, 1)
	done := Done(9).Release(pool.Root())

	task := Spawn(After(done.Reference()), func(w *Worker) (int, error) {
		v, err := done.Get(w)
		return v + 1, err
	}).Release(pool.Root())

	v, err := task.Get(pool.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 10 {
		t.Fatalf("value = %d, want 10", v)
	}
}

func TestSplittableTaskFallsBackToBodyWhenDecliningToSplit(t *testing.T) {
	pool := testPool(t, 1)
	splitCalls := 0

	task := SpawnSplit(After(), func(w *Worker) (int, error) {
		return 5, nil
	}, func(w *Worker) (UnreleasedTreeture[int], bool) {
		splitCalls++
		return UnreleasedTreeture[int]{}, false
	}).Release(pool.Root())

	v, err := task.Get(pool.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Fatalf("value = %d, want 5", v)
	}
}

func TestSplittableTaskSubstitutesWhenSplitting(t *testing.T) {
	pool := testPool(t, 4)

	var build func(depth int) UnreleasedTreeture[int]
	build = func(depth int) UnreleasedTreeture[int] {
		return SpawnSplit(After(), func(w *Worker) (int, error) {
			return 1, nil
		}, func(w *Worker) (UnreleasedTreeture[int], bool) {
			if depth >= 3 {
				return UnreleasedTreeture[int]{}, false
			}
			left := build(depth + 1)
			right := build(depth + 1)
			return Combine(After(), left, right, false, func(a, b int) (int, error) {
				return a + b, nil
			}), true
		})
	}

	task := build(0).Release(pool.Root())
	v, err := task.Get(pool.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 8 {
		t.Fatalf("value = %d, want 8 (2^3 leaves)", v)
	}
}

func TestIllegalStateTransitionPanics(t *testing.T) {
	task := newOrphanTaskCore()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic skipping straight from New to Running")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("panic value = %v, want an error wrapping ErrIllegalTransition", r)
		}
	}()
	task.setState(stateRunning)
}

func TestOrphanTaskRunsWithoutAFamily(t *testing.T) {
	pool := testPool(t, 1)
	task := &Task[int]{core: newOrphanTaskCore()}
	task.core.executeFn = func(w *Worker) { task.value = 11 }
	task.core.aggregateFn = func() {}

	w := pool.Root()
	task.core.start(w)
	task.core.wait(w)

	if !task.core.isDone() {
		t.Fatal("orphan task never reached Done")
	}
	if task.value != 11 {
		t.Fatalf("value = %d, want 11", task.value)
	}
}
