package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tofan79/autoclipper-backend/internal/config"
	"github.com/tofan79/autoclipper-backend/internal/http/response"
	"github.com/tofan79/autoclipper-backend/internal/logger"
	"github.com/tofan79/autoclipper-backend/internal/repos"
)

type SettingHandler struct {
	cfg      *config.Manager
	settings repos.SettingRepo
	log      *logger.Logger
}

func NewSettingHandler(cfg *config.Manager, settings repos.SettingRepo, baseLog *logger.Logger) *SettingHandler {
	return &SettingHandler{
		cfg:      cfg,
		settings: settings,
		log:      baseLog.With("handler", "SettingHandler"),
	}
}

// GET /settings
func (h *SettingHandler) GetSettings(c *gin.Context) {
	values, err := h.cfg.AsMap()
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "settings_read_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"values": values})
}

type putSettingsRequest struct {
	Values map[string]any `json:"values" binding:"required"`
}

// PUT /settings
func (h *SettingHandler) PutSettings(c *gin.Context) {
	var req putSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	for key := range req.Values {
		if !config.KnownKey(key) {
			response.RespondError(c, http.StatusBadRequest, "unknown_setting",
				fmt.Errorf("unknown setting: %s", key))
			return
		}
	}
	if err := h.cfg.SetMany(req.Values); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "settings_write_failed", err)
		return
	}
	// Mirror into the settings table so DB consumers see the same view.
	if h.settings != nil {
		for key, value := range req.Values {
			if err := h.settings.Upsert(c.Request.Context(), nil, key, fmt.Sprintf("%v", value)); err != nil {
				h.log.Warn("Failed to mirror setting", "key", key, "error", err)
			}
		}
	}

	values, err := h.cfg.AsMap()
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "settings_read_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"values": values})
}

type apiKeyRequest struct {
	Provider string `json:"provider" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

// POST /settings/api-key
func (h *SettingHandler) SetAPIKey(c *gin.Context) {
	var req apiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Provider != "openrouter" && req.Provider != "openai" {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider",
			fmt.Errorf("provider must be openrouter or openai"))
		return
	}
	if err := h.cfg.SaveEncryptedKey(req.Provider, req.APIKey); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "api_key_save_failed", err)
		return
	}
	h.log.Info("API key saved", "provider", req.Provider)
	response.RespondOK(c, gin.H{"message": fmt.Sprintf("%s API key saved", req.Provider)})
}
