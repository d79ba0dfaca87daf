package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tofan79/autoclipper-backend/internal/logger"
)

// Processor runs one job to completion. It should poll
// Manager.IsCancelRequested between stages and abandon work when the
// flag is set.
type Processor func(ctx context.Context, jobID string) error

const idleSleep = 200 * time.Millisecond

// Manager is a FIFO job queue with a bounded number of concurrent
// workers. One mutex guards all queue state; workers poll rather than
// block so Stop stays simple and cancel can race enqueue safely.
type Manager struct {
	mu       sync.Mutex
	pending  []string
	running  map[string]struct{}
	canceled map[string]struct{}

	processor  Processor
	maxWorkers int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool

	log *logger.Logger
}

func NewManager(maxConcurrent int, baseLog *logger.Logger) *Manager {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Manager{
		running:    make(map[string]struct{}),
		canceled:   make(map[string]struct{}),
		maxWorkers: maxConcurrent,
		stopCh:     make(chan struct{}),
		log:        baseLog.With("service", "QueueManager"),
	}
}

// SetProcessor must be called before Start.
func (m *Manager) SetProcessor(p Processor) {
	m.mu.Lock()
	m.processor = p
	m.mu.Unlock()
}

// Enqueue appends jobID to the back of the pending queue. A job that
// is already pending or running is not enqueued twice.
func (m *Manager) Enqueue(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("enqueue: job id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[jobID]; ok {
		return fmt.Errorf("enqueue: job %s already running", jobID)
	}
	for _, id := range m.pending {
		if id == jobID {
			return fmt.Errorf("enqueue: job %s already pending", jobID)
		}
	}
	delete(m.canceled, jobID)
	m.pending = append(m.pending, jobID)
	m.log.Info("Job enqueued", "job_id", jobID, "pending", len(m.pending))
	return nil
}

// Cancel removes a pending job outright, or flags a running job so
// its processor can stop cooperatively. Returns true when the job was
// still pending and was dequeued without running.
func (m *Manager) Cancel(jobID string) (dequeued bool, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range m.pending {
		if id == jobID {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			m.log.Info("Pending job dequeued by cancel", "job_id", jobID)
			return true, true
		}
	}
	if _, ok := m.running[jobID]; ok {
		m.canceled[jobID] = struct{}{}
		m.log.Info("Cancel requested for running job", "job_id", jobID)
		return false, true
	}
	return false, false
}

// IsCancelRequested reports whether a cooperative cancel is pending
// for a running job.
func (m *Manager) IsCancelRequested(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.canceled[jobID]
	return ok
}

// Reorder moves a pending job to position index. Indexes outside the
// queue are clamped; reordering a job that is not pending is an error.
func (m *Manager) Reorder(jobID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := -1
	for i, id := range m.pending {
		if id == jobID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("reorder: job %s is not pending", jobID)
	}
	m.pending = append(m.pending[:pos], m.pending[pos+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(m.pending) {
		index = len(m.pending)
	}
	m.pending = append(m.pending[:index], append([]string{jobID}, m.pending[index:]...)...)
	return nil
}

// Snapshot returns the pending order, the set of running job ids, and
// the running jobs with a cancel flag raised. All three are copied
// under the same lock so the view is consistent.
func (m *Manager) Snapshot() (pending []string, running []string, canceled []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending = make([]string, len(m.pending))
	copy(pending, m.pending)
	running = make([]string, 0, len(m.running))
	for id := range m.running {
		running = append(running, id)
	}
	canceled = make([]string, 0, len(m.canceled))
	for id := range m.canceled {
		canceled = append(canceled, id)
	}
	sort.Strings(canceled)
	return pending, running, canceled
}

// Start launches the worker pool. It panics if no processor was set,
// matching the contract that wiring happens before startup.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.processor == nil {
		m.mu.Unlock()
		panic("queue: Start called without a processor")
	}
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.maxWorkers; i++ {
		m.wg.Add(1)
		go m.workerLoop(ctx, i)
	}
	m.log.Info("Queue workers started", "workers", m.maxWorkers)
}

// Stop halts the workers after their current job finishes.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()
	close(m.stopCh)
	m.wg.Wait()
	m.log.Info("Queue workers stopped")
}

func (m *Manager) workerLoop(ctx context.Context, worker int) {
	defer m.wg.Done()
	wlog := m.log.With("worker", worker)
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		jobID, ok := m.takeNext()
		if !ok {
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(idleSleep):
			}
			continue
		}

		m.runOne(ctx, wlog, jobID)
	}
}

func (m *Manager) takeNext() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return "", false
	}
	jobID := m.pending[0]
	m.pending = m.pending[1:]
	m.running[jobID] = struct{}{}
	return jobID, true
}

func (m *Manager) runOne(ctx context.Context, wlog *logger.Logger, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			wlog.Error("Processor panicked", "job_id", jobID, "panic", r)
		}
		m.mu.Lock()
		delete(m.running, jobID)
		delete(m.canceled, jobID)
		m.mu.Unlock()
	}()

	if err := m.processor(ctx, jobID); err != nil {
		wlog.Warn("Job finished with error", "job_id", jobID, "error", err)
	}
}
