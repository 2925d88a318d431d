package batch

import (
	"errors"
	"testing"
)

func TestRunnerCollectsAllResults(t *testing.T) {
	r := NewRunner(2)
	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		n := n
		r.Submit(n, func() (any, error) {
			return n + "-done", nil
		})
	}
	r.Close()

	seen := map[string]bool{}
	for res := range r.Results() {
		if res.Err != nil {
			t.Fatalf("job %s: unexpected error: %v", res.Name, res.Err)
		}
		if res.Value != res.Name+"-done" {
			t.Fatalf("job %s: value = %v, want %q", res.Name, res.Value, res.Name+"-done")
		}
		seen[res.Name] = true
	}
	for _, n := range names {
		if !seen[n] {
			t.Fatalf("missing result for job %q", n)
		}
	}
}

func TestRunnerPropagatesJobErrors(t *testing.T) {
	r := NewRunner(1)
	wantErr := errors.New("job failed")
	r.Submit("bad", func() (any, error) {
		return nil, wantErr
	})
	r.Close()

	res := <-r.Results()
	if !errors.Is(res.Err, wantErr) {
		t.Fatalf("err = %v, want %v", res.Err, wantErr)
	}
}

func TestRunnerZeroSizeFallsBackToGOMAXPROCS(t *testing.T) {
	r := NewRunner(0)
	r.Submit("x", func() (any, error) { return 1, nil })
	r.Close()

	res := <-r.Results()
	if res.Value != 1 {
		t.Fatalf("value = %v, want 1", res.Value)
	}
}
