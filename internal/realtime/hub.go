package realtime

import (
	"sync"

	"github.com/tofan79/autoclipper-backend/internal/logger"
)

// Subscriber receives serialized events for one job. Send must be safe
// to call from multiple goroutines; a non-nil error marks the
// subscriber dead and the hub evicts it.
type Subscriber interface {
	Send(data []byte) error
	Close() error
}

// Hub fans progress events out to per-job subscribers. The last event
// per job is retained so late joiners immediately see current state.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[Subscriber]struct{}
	lastEvent   map[string]ProgressEvent
	log         *logger.Logger
}

func NewHub(baseLog *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[Subscriber]struct{}),
		lastEvent:   make(map[string]ProgressEvent),
		log:         baseLog.With("service", "RealtimeHub"),
	}
}

// Subscribe registers sub for jobID and immediately replays the
// latest known event as a snapshot, if one exists.
func (h *Hub) Subscribe(jobID string, sub Subscriber) {
	h.mu.Lock()
	set, ok := h.subscribers[jobID]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.subscribers[jobID] = set
	}
	set[sub] = struct{}{}
	last, hasLast := h.lastEvent[jobID]
	h.mu.Unlock()

	if hasLast {
		snapshot := last
		snapshot.Event = EventSnapshot
		if data, err := snapshot.Marshal(); err == nil {
			if err := sub.Send(data); err != nil {
				h.Unsubscribe(jobID, sub)
			}
		}
	}
}

// Unsubscribe removes sub; it is safe to call for a subscriber that
// was already evicted.
func (h *Hub) Unsubscribe(jobID string, sub Subscriber) {
	h.mu.Lock()
	if set, ok := h.subscribers[jobID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subscribers, jobID)
		}
	}
	h.mu.Unlock()
	_ = sub.Close()
}

// Publish records event as the job's latest state and delivers it to
// every live subscriber. Subscribers whose Send fails are evicted.
func (h *Hub) Publish(event ProgressEvent) {
	data, err := event.Marshal()
	if err != nil {
		h.log.Error("Failed to marshal event", "job_id", event.JobID, "error", err)
		return
	}

	h.mu.Lock()
	h.lastEvent[event.JobID] = event
	targets := make([]Subscriber, 0, len(h.subscribers[event.JobID]))
	for sub := range h.subscribers[event.JobID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	var stale []Subscriber
	for _, sub := range targets {
		if err := sub.Send(data); err != nil {
			stale = append(stale, sub)
		}
	}
	for _, sub := range stale {
		h.Unsubscribe(event.JobID, sub)
	}
	if len(stale) > 0 {
		h.log.Debug("Evicted stale subscribers", "job_id", event.JobID, "count", len(stale))
	}
}

// Forget drops the retained last event for a job, used once a job
// reaches a terminal state and its row is the source of truth.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	delete(h.lastEvent, jobID)
	h.mu.Unlock()
}

// SubscriberCount reports live subscribers for a job.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[jobID])
}

// Broadcast delivers an event to every live subscriber without
// recording it as job state, used for service-wide notices such as
// shutdown. Failed subscribers are evicted.
func (h *Hub) Broadcast(event ProgressEvent) {
	data, err := event.Marshal()
	if err != nil {
		h.log.Error("Failed to marshal broadcast event", "error", err)
		return
	}

	type target struct {
		jobID string
		sub   Subscriber
	}
	h.mu.RLock()
	var targets []target
	for jobID, set := range h.subscribers {
		for sub := range set {
			targets = append(targets, target{jobID: jobID, sub: sub})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		if err := t.sub.Send(data); err != nil {
			h.Unsubscribe(t.jobID, t.sub)
		}
	}
}
