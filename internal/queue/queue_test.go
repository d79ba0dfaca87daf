package queue

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tofan79/autoclipper-backend/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestEnqueueRejectsDuplicates(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))
	if err := m.Enqueue("job-1"); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := m.Enqueue("job-1"); err == nil {
		t.Fatal("duplicate enqueue should fail")
	}
	pending, _, _ := m.Snapshot()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %v", pending)
	}
}

func TestFIFOProcessingOrder(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))

	var mu sync.Mutex
	var order []string
	m.SetProcessor(func(ctx context.Context, jobID string) error {
		mu.Lock()
		order = append(order, jobID)
		mu.Unlock()
		return nil
	})

	for _, id := range []string{"a", "b", "c"} {
		if err := m.Enqueue(id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Fatalf("expected FIFO order, got %v", order)
	}
}

func TestConcurrencyBound(t *testing.T) {
	m := NewManager(2, mustTestLogger(t))

	var mu sync.Mutex
	active, peak, done := 0, 0, 0
	m.SetProcessor(func(ctx context.Context, jobID string) error {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		active--
		done++
		mu.Unlock()
		return nil
	})

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := m.Enqueue(id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done == 5
	})

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Fatalf("concurrency bound exceeded: peak=%d", peak)
	}
}

func TestCancelPendingDequeues(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))
	if err := m.Enqueue("job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	dequeued, found := m.Cancel("job-1")
	if !found || !dequeued {
		t.Fatalf("expected pending cancel to dequeue, got dequeued=%v found=%v", dequeued, found)
	}
	pending, _, _ := m.Snapshot()
	if len(pending) != 0 {
		t.Fatalf("expected empty pending, got %v", pending)
	}
}

func TestCancelRunningSetsFlag(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))

	started := make(chan struct{})
	release := make(chan struct{})
	m.SetProcessor(func(ctx context.Context, jobID string) error {
		close(started)
		<-release
		return nil
	})
	if err := m.Enqueue("job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	m.Start(context.Background())
	defer m.Stop()

	<-started
	dequeued, found := m.Cancel("job-1")
	if !found || dequeued {
		t.Fatalf("expected running cancel flag, got dequeued=%v found=%v", dequeued, found)
	}
	if !m.IsCancelRequested("job-1") {
		t.Fatal("cancel flag not visible to processor")
	}
	close(release)

	waitFor(t, 2*time.Second, func() bool {
		_, running, _ := m.Snapshot()
		return len(running) == 0
	})
	if m.IsCancelRequested("job-1") {
		t.Fatal("cancel flag should clear after the job finishes")
	}
}

func TestSnapshotReportsCanceledRunningJobs(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))

	started := make(chan struct{})
	release := make(chan struct{})
	m.SetProcessor(func(ctx context.Context, jobID string) error {
		close(started)
		<-release
		return nil
	})
	if err := m.Enqueue("job-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	m.Start(context.Background())
	defer m.Stop()

	<-started
	if _, found := m.Cancel("job-1"); !found {
		t.Fatal("cancel should find the running job")
	}

	_, running, canceled := m.Snapshot()
	if !reflect.DeepEqual(running, []string{"job-1"}) {
		t.Fatalf("running = %v, want [job-1]", running)
	}
	if !reflect.DeepEqual(canceled, []string{"job-1"}) {
		t.Fatalf("canceled = %v, want [job-1]", canceled)
	}
	close(release)

	waitFor(t, 2*time.Second, func() bool {
		_, running, canceled := m.Snapshot()
		return len(running) == 0 && len(canceled) == 0
	})
}

func TestCancelUnknownJob(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))
	if _, found := m.Cancel("ghost"); found {
		t.Fatal("cancel of unknown job should report not found")
	}
}

func TestReorderClampsIndex(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))
	for _, id := range []string{"a", "b", "c"} {
		if err := m.Enqueue(id); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	if err := m.Reorder("c", 0); err != nil {
		t.Fatalf("reorder to front: %v", err)
	}
	pending, _, _ := m.Snapshot()
	if !reflect.DeepEqual(pending, []string{"c", "a", "b"}) {
		t.Fatalf("unexpected order: %v", pending)
	}

	if err := m.Reorder("c", 99); err != nil {
		t.Fatalf("reorder with oversized index: %v", err)
	}
	pending, _, _ = m.Snapshot()
	if !reflect.DeepEqual(pending, []string{"a", "b", "c"}) {
		t.Fatalf("oversized index should clamp to back, got %v", pending)
	}

	if err := m.Reorder("ghost", 0); err == nil {
		t.Fatal("reorder of unknown job should fail")
	}
}

func TestProcessorPanicDoesNotKillWorker(t *testing.T) {
	m := NewManager(1, mustTestLogger(t))

	var mu sync.Mutex
	var processed []string
	m.SetProcessor(func(ctx context.Context, jobID string) error {
		if jobID == "boom" {
			panic("processor exploded")
		}
		mu.Lock()
		processed = append(processed, jobID)
		mu.Unlock()
		return nil
	})

	if err := m.Enqueue("boom"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := m.Enqueue("after"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 1 && processed[0] == "after"
	})
}
