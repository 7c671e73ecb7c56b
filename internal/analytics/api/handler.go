package analytics_api

import (
	"fmt"
	"net/http"

	"dholratri-tickets/internal/analytics"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/utils"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// GetAdminStats serves the dashboard summary.
func (h *Handler) GetAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetAdminStats(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to compute admin stats: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Failed to fetch stats.")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}
