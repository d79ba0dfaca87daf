package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tofan79/autoclipper-backend/internal/http/response"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/realtime"
	"github.com/tofan79/autoclipper-backend/internal/repos"
)

type RealtimeHandler struct {
	hub      *realtime.Hub
	jobs     repos.JobRepo
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, jobs repos.JobRepo, baseLog *logger.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:  hub,
		jobs: jobs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients on the LAN connect from arbitrary origins;
			// the LAN token middleware is the access gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: baseLog.With("handler", "RealtimeHandler"),
	}
}

// GET /ws/:job_id
func (h *RealtimeHandler) JobStream(c *gin.Context) {
	jobID := c.Param("job_id")
	job, err := h.jobs.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return
	}
	if job == nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found",
			fmt.Errorf("job %s not found", jobID))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}
	client := realtime.NewWSClient(conn, jobID)

	// The DB row is the baseline; the hub replays any newer live event
	// on subscribe.
	stage := ""
	if job.CurrentStage != nil {
		stage = *job.CurrentStage
	}
	message := ""
	if job.ErrorMsg != nil {
		message = *job.ErrorMsg
	}
	snapshot := realtime.NewProgressEvent(
		realtime.EventSnapshot, job.ID, job.Status, job.ProgressPct, stage, message)
	if data, err := snapshot.Marshal(); err == nil {
		if err := client.Send(data); err != nil {
			_ = client.Close()
			return
		}
	}

	h.hub.Subscribe(jobID, client)
	h.log.Info("Websocket subscriber attached", "job_id", jobID)

	// Block until the peer goes away. Inbound payloads are discarded,
	// but each one defers the idle heartbeat.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		client.MarkActivity()
	}
	h.hub.Unsubscribe(jobID, client)
	h.log.Info("Websocket subscriber detached", "job_id", jobID)
}
