package coupon_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/coupon"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/models"
	"dholratri-tickets/internal/utils"
)

type Handler struct {
	CouponService *coupon.Service
	Audit         activity.Recorder
	Validator     *utils.Validator
	Logger        *logger.Logger
}

func NewHandler(svc *coupon.Service, audit activity.Recorder, v *utils.Validator, log *logger.Logger) *Handler {
	return &Handler{CouponService: svc, Audit: audit, Validator: v, Logger: log}
}

type validateResponse struct {
	Message string                `json:"message"`
	Coupon  *models.AppliedCoupon `json:"coupon"`
}

// Validate checks a coupon code before checkout. Nothing is consumed.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.CouponValidateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	applied, err := h.CouponService.Validate(r.Context(), req)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		utils.WriteMessage(w, http.StatusNotFound, "Invalid coupon code.")
		return
	case errors.Is(err, coupon.ErrInvalid):
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("ValidateCoupon: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Error validating coupon.")
		return
	}

	utils.WriteJSON(w, http.StatusOK, validateResponse{Message: "Coupon applied successfully!", Coupon: applied})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CouponRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.CouponService.Create(r.Context(), req)
	switch {
	case errors.Is(err, coupon.ErrAlreadyExists):
		utils.WriteMessage(w, http.StatusConflict, "Coupon code already exists.")
		return
	case errors.Is(err, coupon.ErrInvalid):
		utils.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.Logger.Error("API", fmt.Sprintf("CreateCoupon: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Error creating coupon.")
		return
	}

	h.record(r.Context(), models.ActionCreateCoupon, map[string]interface{}{"code": c.Code, "type": c.Type, "value": c.Value})
	utils.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.CouponService.List(r.Context())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListCoupons: %v", err))
		utils.WriteMessage(w, http.StatusInternalServerError, "Failed to fetch coupons.")
		return
	}
	utils.WriteJSON(w, http.StatusOK, coupons)
}

func (h *Handler) record(ctx context.Context, action string, details map[string]interface{}) {
	if err := h.Audit.Record(ctx, auth.UserID(ctx), action, details); err != nil {
		h.Logger.Error("ACTIVITY", fmt.Sprintf("Failed to log %s: %v", action, err))
	}
}
