package purchase_api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/coupon"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/media"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/purchase"
	"dholratri-tickets/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	PurchaseService *purchase.Service
	Validator       *utils.Validator
	Logger          *logger.Logger
}

func NewHandler(svc *purchase.Service, v *utils.Validator, log *logger.Logger) *Handler {
	return &Handler{PurchaseService: svc, Validator: v, Logger: log}
}

// Initiate creates a payment-pending purchase with one ticket per attendee.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req models.PurchaseRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.PurchaseService.Initiate(r.Context(), req)
	switch {
	case errors.Is(err, purchase.ErrInvalidTicketType):
		utils.WriteMessage(w, http.StatusBadRequest, "Invalid ticket type.")
		return
	case errors.Is(err, coupon.ErrNotFound):
		utils.WriteMessage(w, http.StatusBadRequest, "Invalid coupon code.")
		return
	case errors.Is(err, coupon.ErrUsageLimit):
		utils.WriteMessage(w, http.StatusConflict, "Coupon usage limit has been reached")
		return
	case errors.Is(err, coupon.ErrInvalid):
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("InitiatePurchase: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error during purchase initiation.")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, resp)
}

// ConfirmPayment takes the multipart fields utr and screenshot.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := media.ParseMultipart(w, r); err != nil {
		if errors.Is(err, media.ErrFileTooLarge) {
			utils.WriteMessage(w, http.StatusBadRequest, media.UserMessage(err))
			return
		}
		utils.WriteMessage(w, http.StatusBadRequest, "UTR and screenshot file are required.")
		return
	}

	utr := strings.TrimSpace(r.FormValue("utr"))
	upload, err := media.FormImage(r, "screenshot")
	if errors.Is(err, media.ErrNoFile) || (err == nil && utr == "") {
		if upload != nil {
			upload.Close()
		}
		utils.WriteMessage(w, http.StatusBadRequest, "UTR and screenshot file are required.")
		return
	}
	if err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, media.UserMessage(err))
		return
	}
	defer upload.Close()

	if len(utr) > 100 {
		utils.WriteMessage(w, http.StatusBadRequest, `"utr" must be at most 100 characters`)
		return
	}

	err = h.PurchaseService.ConfirmPayment(r.Context(), id, utr, upload.File)
	switch {
	case errors.Is(err, purchase.ErrNotPending):
		utils.WriteMessage(w, http.StatusNotFound, "Pending purchase not found or already processed.")
		return
	case errors.Is(err, purchase.ErrConfirmInProgress):
		utils.WriteMessage(w, http.StatusConflict, "Payment confirmation already in progress.")
		return
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("ConfirmPayment %s: %v", id, err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error during payment confirmation.")
		return
	}

	utils.WriteMessage(w, http.StatusOK, "Booking received and is now under review.")
}

// List returns purchases for review. ?status= defaults to booked.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := models.StatusBooked
	if s := r.URL.Query().Get("status"); s != "" {
		status = models.PurchaseStatus(s)
	}
	if !status.Valid() {
		utils.WriteMessage(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q.", status))
		return
	}

	list, err := h.PurchaseService.ListByStatus(r.Context(), status)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListPurchases: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error fetching purchases.")
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	names, err := h.PurchaseService.Approve(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		h.reviewError(w, "ApprovePurchase", id, err)
		return
	}

	utils.WriteMessage(w, http.StatusOK, fmt.Sprintf("Purchase approved. %d tickets generated for: %s", len(names), strings.Join(names, ", ")))
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.PurchaseService.Reject(r.Context(), id, auth.UserID(r.Context())); err != nil {
		h.reviewError(w, "RejectPurchase", id, err)
		return
	}

	utils.WriteMessage(w, http.StatusOK, "Booking rejected")
}

func (h *Handler) reviewError(w http.ResponseWriter, op, id string, err error) {
	switch {
	case errors.Is(err, purchase.ErrNotFound):
		utils.WriteMessage(w, http.StatusNotFound, "Purchase not found.")
	case errors.Is(err, purchase.ErrNotAwaitingApproval):
		utils.WriteMessage(w, http.StatusConflict, "Purchase is not awaiting approval.")
	case errors.Is(err, purchase.ErrNoTickets):
		utils.WriteMessage(w, http.StatusConflict, "No tickets found for this purchase.")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", op, id, err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error during review.")
	}
}
