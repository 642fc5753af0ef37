package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"technovit/internal/event/models"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
	"technovit/pkg/platform/httputil"
	"technovit/pkg/requestcontext"
)

// Service defines the event operations exposed over HTTP.
type Service interface {
	List(ctx context.Context) ([]*models.Event, error)
	Get(ctx context.Context, id domain.EventID) (*models.Event, error)
	Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error)
	Patch(ctx context.Context, id domain.EventID, requested map[string]json.RawMessage) (*models.Event, error)
}

type Handler struct {
	events Service
	logger *slog.Logger
}

func New(events Service, logger *slog.Logger) *Handler {
	return &Handler{events: events, logger: logger}
}

// eventID parses the {id} path parameter. Malformed ids read as unknown events.
func eventID(r *http.Request) (domain.EventID, error) {
	id, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		return domain.EventID{}, dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return id, nil
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "list events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ev, err := h.events.Get(r.Context(), id)
	if err != nil {
		h.fail(r.Context(), w, "get event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ev, err := h.events.Create(r.Context(), &req)
	if err != nil {
		h.fail(r.Context(), w, "create event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ev)
}

func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var body map[string]json.RawMessage
	if err := httputil.DecodeJSON(w, r, &body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	ev, err := h.events.Patch(r.Context(), id, body)
	if err != nil {
		h.fail(r.Context(), w, "patch event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed", "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, op+" rejected", "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
