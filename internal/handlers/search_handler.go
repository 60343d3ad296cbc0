package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"flight_search/internal/models"
	"flight_search/internal/service"
)

// SearchService is the part of the service layer used by SearchHandler.
type SearchService interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
	Airports(ctx context.Context) (*models.AirportsResponse, error)
}

type SearchHandler struct {
	service SearchService
	logger  *slog.Logger
}

func NewSearchHandler(service SearchService, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{service: service, logger: logger}
}

// POST /api/search
// 200: { "search_id": "...", "count": n, "itineraries": [...] }
// 400: invalid parameters or unknown airport
// 422: malformed timetable data
// 500: internal error
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	resp, err := h.service.Search(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /api/airports
// 200: { "airports": [...], "flights": n }
func (h *SearchHandler) Airports(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Airports(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SearchHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var aerr *service.AirportError
	switch {
	case errors.As(err, &aerr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     err.Error(),
			"role":      aerr.Role,
			"available": aerr.Available,
		})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrMalformedFlight):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "search aborted")
	default:
		h.logger.ErrorContext(r.Context(), "search request failed",
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
