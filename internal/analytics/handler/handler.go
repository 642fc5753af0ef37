package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"technovit/internal/analytics/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/httputil"
	"technovit/pkg/requestcontext"
)

// Service defines the dashboard reads exposed over HTTP.
type Service interface {
	Stats(ctx context.Context) (*models.Stats, error)
	EventBreakdown(ctx context.Context) ([]models.EventSummary, error)
	Participants(ctx context.Context, eventID domain.EventID) (*models.Participants, error)
}

type Handler struct {
	analytics Service
	logger    *slog.Logger
}

func New(analytics Service, logger *slog.Logger) *Handler {
	return &Handler{analytics: analytics, logger: logger}
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type participantsResponse struct {
	Success bool                    `json:"success"`
	Event   models.EventRef         `json:"event"`
	Data    []models.ParticipantRow `json:"data"`
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Stats(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: stats})
}

func (h *Handler) HandleEventBreakdown(w http.ResponseWriter, r *http.Request) {
	rows, err := h.analytics.EventBreakdown(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "event breakdown", err)
		return
	}
	if rows == nil {
		rows = []models.EventSummary{}
	}
	httputil.WriteJSON(w, http.StatusOK, dataResponse{Success: true, Data: rows})
}

func (h *Handler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "event not found"))
		return
	}
	out, err := h.analytics.Participants(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, "participants", err)
		return
	}
	rows := out.Rows
	if rows == nil {
		rows = []models.ParticipantRow{}
	}
	httputil.WriteJSON(w, http.StatusOK, participantsResponse{Success: true, Event: out.Event, Data: rows})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, op+" rejected", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
