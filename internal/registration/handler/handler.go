package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"technovit/internal/registration/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/httputil"
	"technovit/pkg/requestcontext"
)

// Service defines the registration operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req models.CreateRequest) (*models.View, error)
	List(ctx context.Context) ([]*models.View, error)
	Respond(ctx context.Context, req models.RespondRequest) error
	DeleteOrWithdraw(ctx context.Context, id domain.RegistrationID) error
	ConfirmPayment(ctx context.Context, id domain.RegistrationID, req models.PaymentRequest) error
}

type Handler struct {
	registrations Service
	logger        *slog.Logger
}

func New(registrations Service, logger *slog.Logger) *Handler {
	return &Handler{registrations: registrations, logger: logger}
}

type successResponse struct {
	Success bool `json:"success"`
}

func registrationID(r *http.Request) (domain.RegistrationID, error) {
	id, err := domain.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		return domain.RegistrationID{}, dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return id, nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.registrations.Create(r.Context(), req)
	if err != nil {
		h.fail(r.Context(), w, "create registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.registrations.List(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list registrations", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	var req models.RespondRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.registrations.Respond(r.Context(), req); err != nil {
		h.fail(r.Context(), w, "respond to invitation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := registrationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.registrations.DeleteOrWithdraw(r.Context(), id); err != nil {
		h.fail(r.Context(), w, "delete registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := registrationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.PaymentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.registrations.ConfirmPayment(r.Context(), id, req); err != nil {
		h.fail(r.Context(), w, "confirm payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, op+" rejected", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
