package microtask

import (
	"errors"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDrainRunsJobsInFIFOOrder(t *testing.T) {
	q := New()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		q.Enqueue(Job{Name: "job", Run: func() error {
			order = append(order, i)
			return nil
		}})
	}
	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected %v, got %v", want, order)
		}
	}
}

func TestJobsEnqueuedDuringDrainRunSameTurnAfterQueued(t *testing.T) {
	// t1, t2 are queued up front; t1's body enqueues t3. Spec §5: t3 must
	// run after t2 (already queued before the drain started), not jump the
	// line ahead of it.
	q := New()
	var order []string
	q.Enqueue(Job{Name: "t1", Run: func() error {
		order = append(order, "t1")
		q.Enqueue(Job{Name: "t3", Run: func() error {
			order = append(order, "t3")
			return nil
		}})
		return nil
	}})
	q.Enqueue(Job{Name: "t2", Run: func() error {
		order = append(order, "t2")
		return nil
	}})
	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"t1", "t2", "t3"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected %v, got %v", want, order)
		}
	}
}

func TestDrainContinuesAfterJobError(t *testing.T) {
	q := New()
	ran2 := false
	q.Enqueue(Job{Name: "fails", Run: func() error { return errors.New("boom") }})
	q.Enqueue(Job{Name: "ok", Run: func() error { ran2 = true; return nil }})
	err := q.Drain()
	if err == nil {
		t.Fatal("expected the first job's error to be returned")
	}
	if !ran2 {
		t.Error("expected the second job to still run after the first failed")
	}
}

func TestDrainOnEmptyQueueIsANoOp(t *testing.T) {
	q := New()
	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got len %d", q.Len())
	}
}
