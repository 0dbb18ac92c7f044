package containers

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue on full queue: err = %v", err)
	}

	if v, _ := rq.Peek(); v != 1 {
		t.Errorf("Peek() = %d, want 1", v)
	}
	if v, _ := rq.Dequeue(); v != 1 {
		t.Errorf("Dequeue() = %d, want 1", v)
	}
	// wraps around the backing array
	if err := rq.Enqueue(4); err != nil {
		t.Fatalf("Enqueue after Dequeue error = %v", err)
	}
	for _, want := range []int{2, 3, 4} {
		if v, err := rq.Dequeue(); err != nil || v != want {
			t.Errorf("Dequeue() = %d, %v, want %d", v, err, want)
		}
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Dequeue on empty queue: err = %v", err)
	}
	if _, err := rq.Peek(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Peek on empty queue: err = %v", err)
	}
}

func TestRingQueueLen(t *testing.T) {
	rq := NewRingQueue[string](2)
	if !rq.IsEmpty() || rq.Len() != 0 {
		t.Fatalf("new queue not empty")
	}
	rq.Enqueue("a")
	rq.Enqueue("b")
	if !rq.IsFull() || rq.Len() != 2 {
		t.Errorf("Len() = %d, IsFull() = %v", rq.Len(), rq.IsFull())
	}
}
