package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWorkerPool_ClampsToOne(t *testing.T) {
	pool, err := NewWorkerPool(0)
	if err != nil {
		t.Fatalf("NewWorkerPool(0) error: %v", err)
	}
	defer pool.Close()

	if pool.workers != 1 {
		t.Errorf("workers = %d, want 1", pool.workers)
	}
}

func TestNewWorkerPool_TooMany(t *testing.T) {
	if _, err := NewWorkerPool(MaxWorkers + 1); err == nil {
		t.Error("NewWorkerPool(MaxWorkers+1) succeeded, want error")
	}
}

func TestWorkerPool_RunsSubmittedTasks(t *testing.T) {
	pool, err := NewWorkerPool(4)
	if err != nil {
		t.Fatalf("NewWorkerPool() error: %v", err)
	}

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		ok := pool.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
		if !ok {
			t.Fatal("Submit() returned false on an open pool")
		}
	}
	wg.Wait()
	pool.Close()

	if count.Load() != 100 {
		t.Errorf("ran %d tasks, want 100", count.Load())
	}
}

func TestWorkerPool_TrySubmitFullQueue(t *testing.T) {
	pool, err := NewWorkerPool(1)
	if err != nil {
		t.Fatalf("NewWorkerPool() error: %v", err)
	}
	defer pool.Close()

	block := make(chan struct{})
	pool.Submit(func() { <-block })

	// Fill the buffered queue, then one more must be refused.
	for pool.TrySubmit(func() {}) {
	}
	if pool.TrySubmit(func() {}) {
		t.Error("TrySubmit() succeeded on a full queue")
	}
	close(block)
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool, err := NewWorkerPool(2)
	if err != nil {
		t.Fatalf("NewWorkerPool() error: %v", err)
	}
	pool.Close()

	if pool.Submit(func() {}) {
		t.Error("Submit() succeeded after Close()")
	}
	if pool.TrySubmit(func() {}) {
		t.Error("TrySubmit() succeeded after Close()")
	}
}

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool, err := NewWorkerPool(2)
	if err != nil {
		t.Fatalf("NewWorkerPool() error: %v", err)
	}
	pool.Close()
	pool.Close()
}
