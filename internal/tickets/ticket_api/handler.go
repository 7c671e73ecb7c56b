package ticket_api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"
	tickets "dholratri-tickets/internal/tickets/service"
	"dholratri-tickets/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	TicketService *tickets.TicketService
	Validator     *utils.Validator
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.TicketService, v *utils.Validator, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Validator: v, Logger: log}
}

// Verify checks in the ticket whose id was read from a QR code.
// Expected POST body: {"id": "<ticket uuid>"}
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, models.VerifyResponse{Message: err.Error()})
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, models.VerifyResponse{Message: err.Error()})
		return
	}

	ticket, err := h.TicketService.Checkin(r.Context(), req.ID, auth.UserID(r.Context()))
	switch {
	case errors.Is(err, tickets.ErrTicketNotFound):
		utils.WriteJSON(w, http.StatusNotFound, models.VerifyResponse{Message: "Ticket Not Found"})
	case errors.Is(err, tickets.ErrNotApproved):
		utils.WriteJSON(w, http.StatusForbidden, models.VerifyResponse{
			Message: "Ticket status is: " + strings.ToUpper(string(ticket.Status)),
		})
	case errors.Is(err, tickets.ErrAlreadyCheckedIn):
		h.Logger.LogSecurity("DUPLICATE_SCAN", fmt.Sprintf("ticket %s scanned again by %s", req.ID, auth.Username(r.Context())))
		utils.WriteJSON(w, http.StatusConflict, models.VerifyResponse{
			Message: "Ticket Already Checked In",
			Name:    ticket.DisplayName(),
		})
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("VerifyTicket %s: %v", req.ID, err))
		utils.WriteJSON(w, http.StatusInternalServerError, models.VerifyResponse{Message: "Server error during verification."})
	default:
		utils.WriteJSON(w, http.StatusOK, models.VerifyResponse{
			Valid:   true,
			Message: "Check-in Successful",
			Name:    ticket.DisplayName(),
		})
	}
}

// GetStatus returns the raw ticket list for a phone number.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	list, err := h.TicketService.GetTicketsByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.lookupError(w, "GetTicketStatus", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// GetPasses returns the same tickets grouped into one pass per purchase.
func (h *Handler) GetPasses(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.TicketService.GetPassesByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.lookupError(w, "GetPasses", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, bundles)
}

func (h *Handler) lookupError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, tickets.ErrNoBooking):
		utils.WriteMessage(w, http.StatusNotFound, "No booking found for this phone number.")
	case errors.Is(err, tickets.ErrNoMatchingTickets):
		utils.WriteMessage(w, http.StatusNotFound, "Purchase found, but no matching tickets.")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Server error fetching tickets.")
	}
}
