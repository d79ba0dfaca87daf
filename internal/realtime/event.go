package realtime

import (
	"encoding/json"
	"time"
)

// Event names carried on the push channel.
const (
	EventProgress  = "progress"
	EventStarted   = "started"
	EventResume    = "resume"
	EventDone      = "done"
	EventFailed    = "failed"
	EventCanceled  = "canceled"
	EventSnapshot  = "snapshot"
	EventHeartbeat = "heartbeat"
)

// ProgressEvent is the wire payload pushed to subscribers of a job.
type ProgressEvent struct {
	Event        string `json:"event"`
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ProgressPct  int    `json:"progress_pct"`
	CurrentStage string `json:"current_stage,omitempty"`
	Message      string `json:"message,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// NewProgressEvent stamps the event with the current UTC time.
func NewProgressEvent(event, jobID, status string, progressPct int, stage, message string) ProgressEvent {
	return ProgressEvent{
		Event:        event,
		JobID:        jobID,
		Status:       status,
		ProgressPct:  progressPct,
		CurrentStage: stage,
		Message:      message,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

func (e ProgressEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalProgressEvent decodes a wire payload back into an event,
// used by the bus forwarder and by subscribers that inspect payloads.
func UnmarshalProgressEvent(data []byte) (ProgressEvent, error) {
	var e ProgressEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ProgressEvent{}, err
	}
	return e, nil
}
