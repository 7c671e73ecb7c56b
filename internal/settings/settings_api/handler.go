package settings_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/media"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/settings"
	"dholratri-tickets/internal/utils"
)

type Handler struct {
	SettingsService *settings.Service
	Media           media.Store
	Audit           activity.Recorder
	Logger          *logger.Logger
}

func NewHandler(svc *settings.Service, store media.Store, audit activity.Recorder, log *logger.Logger) *Handler {
	return &Handler{SettingsService: svc, Media: store, Audit: audit, Logger: log}
}

// GetPublic serves the settings the checkout page needs.
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	st, err := h.SettingsService.Get(r.Context())
	if errors.Is(err, settings.ErrNotFound) {
		utils.WriteMessage(w, http.StatusNotFound, "Configuration not found. Please set up in admin panel.")
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetSettings: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error fetching settings.")
		return
	}
	utils.WriteJSON(w, http.StatusOK, st)
}

// GetAdmin returns the settings or null when none are saved yet.
func (h *Handler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	st, err := h.SettingsService.Get(r.Context())
	if errors.Is(err, settings.ErrNotFound) {
		utils.WriteJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetAdminSettings: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error fetching settings.")
		return
	}
	utils.WriteJSON(w, http.StatusOK, st)
}

// Update accepts multipart fields eventName, paymentUpiId, tiers (JSON) and an
// optional paymentQrFile image.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if err := media.ParseMultipart(w, r); err != nil {
		if errors.Is(err, media.ErrFileTooLarge) {
			utils.WriteMessage(w, http.StatusBadRequest, media.UserMessage(err))
			return
		}
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	tiers, err := settings.ParseTiers(r.FormValue("tiers"))
	if err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, trimInvalid(err))
		return
	}
	upd := models.SettingsUpdate{
		EventName:    r.FormValue("eventName"),
		PaymentUpiID: r.FormValue("paymentUpiId"),
		Tiers:        tiers,
	}
	if err := h.SettingsService.Validate(&upd); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, trimInvalid(err))
		return
	}

	upload, err := media.FormImage(r, "paymentQrFile")
	switch {
	case errors.Is(err, media.ErrNoFile):
	case err != nil:
		utils.WriteMessage(w, http.StatusBadRequest, media.UserMessage(err))
		return
	default:
		defer upload.Close()
		url, err := h.Media.UploadPaymentQR(r.Context(), upload.File)
		if err != nil {
			h.Logger.Error("MEDIA", fmt.Sprintf("UpdateSettings: payment QR upload failed: %v", err))
			utils.WriteMessage(w, http.StatusInternalServerError, "File upload error.")
			return
		}
		upd.PaymentQrURL = &url
	}

	st, err := h.SettingsService.Update(r.Context(), upd)
	if errors.Is(err, settings.ErrInvalid) {
		utils.WriteMessage(w, http.StatusBadRequest, trimInvalid(err))
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateSettings: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Error saving settings.")
		return
	}

	h.record(r.Context(), models.ActionUpdateSettings, map[string]interface{}{
		"eventName":    st.EventName,
		"paymentUpiId": st.PaymentUpiID,
		"tierCount":    len(st.Tiers),
	})
	utils.WriteMessage(w, http.StatusOK, "Settings saved successfully!")
}

func (h *Handler) record(ctx context.Context, action string, details map[string]interface{}) {
	if err := h.Audit.Record(ctx, auth.UserID(ctx), action, details); err != nil {
		h.Logger.Error("ACTIVITY", fmt.Sprintf("Failed to log %s: %v", action, err))
	}
}

func trimInvalid(err error) string {
	return strings.TrimPrefix(err.Error(), settings.ErrInvalid.Error()+": ")
}
