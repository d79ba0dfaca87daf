package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

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

type fakeSubscriber struct {
	mu     sync.Mutex
	events []ProgressEvent
	fail   bool
	closed bool
}

func (f *fakeSubscriber) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("dead subscriber")
	}
	var ev ProgressEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSubscriber) received() []ProgressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ProgressEvent, len(f.events))
	copy(out, f.events)
	return out
}

func TestPublishReachesJobSubscribersOnly(t *testing.T) {
	hub := NewHub(mustTestLogger(t))

	subA := &fakeSubscriber{}
	subB := &fakeSubscriber{}
	hub.Subscribe("job-a", subA)
	hub.Subscribe("job-b", subB)

	hub.Publish(NewProgressEvent(EventProgress, "job-a", "running", 20, "ingest", ""))

	if got := subA.received(); len(got) != 1 || got[0].JobID != "job-a" || got[0].ProgressPct != 20 {
		t.Fatalf("subscriber A: unexpected events %+v", got)
	}
	if got := subB.received(); len(got) != 0 {
		t.Fatalf("subscriber B should see nothing, got %+v", got)
	}
}

func TestLateJoinerGetsSnapshot(t *testing.T) {
	hub := NewHub(mustTestLogger(t))

	hub.Publish(NewProgressEvent(EventProgress, "job-a", "running", 55, "transcribe", ""))

	late := &fakeSubscriber{}
	hub.Subscribe("job-a", late)

	got := late.received()
	if len(got) != 1 {
		t.Fatalf("expected snapshot on subscribe, got %d events", len(got))
	}
	if got[0].Event != EventSnapshot || got[0].ProgressPct != 55 {
		t.Fatalf("unexpected snapshot: %+v", got[0])
	}
}

func TestFailedSubscriberIsEvicted(t *testing.T) {
	hub := NewHub(mustTestLogger(t))

	dead := &fakeSubscriber{fail: true}
	live := &fakeSubscriber{}
	hub.Subscribe("job-a", dead)
	hub.Subscribe("job-a", live)

	hub.Publish(NewProgressEvent(EventProgress, "job-a", "running", 10, "ingest", ""))

	if n := hub.SubscriberCount("job-a"); n != 1 {
		t.Fatalf("expected 1 live subscriber after eviction, got %d", n)
	}
	dead.mu.Lock()
	closed := dead.closed
	dead.mu.Unlock()
	if !closed {
		t.Fatal("evicted subscriber was not closed")
	}
	if got := live.received(); len(got) != 1 {
		t.Fatalf("live subscriber should still receive, got %+v", got)
	}
}

func TestUnsubscribeAndForget(t *testing.T) {
	hub := NewHub(mustTestLogger(t))

	sub := &fakeSubscriber{}
	hub.Subscribe("job-a", sub)
	hub.Publish(NewProgressEvent(EventDone, "job-a", "done", 100, "", ""))
	hub.Unsubscribe("job-a", sub)
	hub.Forget("job-a")

	if n := hub.SubscriberCount("job-a"); n != 0 {
		t.Fatalf("expected 0 subscribers, got %d", n)
	}

	// no retained state means no snapshot for the next joiner
	next := &fakeSubscriber{}
	hub.Subscribe("job-a", next)
	if got := next.received(); len(got) != 0 {
		t.Fatalf("expected no snapshot after Forget, got %+v", got)
	}
}
