package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/tofan79/autoclipper-backend/internal/http/handlers"
	httpMW "github.com/tofan79/autoclipper-backend/internal/http/middleware"
)

type RouterConfig struct {
	JobHandler      *httpH.JobHandler
	ClipHandler     *httpH.ClipHandler
	SettingHandler  *httpH.SettingHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler

	LANToken *httpMW.LANTokenMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	// Health (public)
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/")
	{
		if cfg.LANToken != nil {
			protected.Use(cfg.LANToken.RequireToken())
		}

		if cfg.JobHandler != nil {
			protected.POST("/jobs", cfg.JobHandler.CreateJob)
			protected.GET("/jobs", cfg.JobHandler.ListJobs)
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
			protected.GET("/jobs/:id/status", cfg.JobHandler.GetJobStatus)
			protected.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
			protected.POST("/jobs/:id/reorder", cfg.JobHandler.ReorderJob)
		}

		if cfg.ClipHandler != nil {
			protected.GET("/clips/:id", cfg.ClipHandler.ListClipsByJob)
			protected.GET("/clips/:id/preview", cfg.ClipHandler.GetClipPreview)
		}

		if cfg.SettingHandler != nil {
			protected.GET("/settings", cfg.SettingHandler.GetSettings)
			protected.PUT("/settings", cfg.SettingHandler.PutSettings)
			protected.POST("/settings/api-key", cfg.SettingHandler.SetAPIKey)
		}

		if cfg.RealtimeHandler != nil {
			protected.GET("/ws/:job_id", cfg.RealtimeHandler.JobStream)
		}
	}

	return r
}
