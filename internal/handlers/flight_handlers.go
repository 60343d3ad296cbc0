package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"flight_search/internal/models"
	"flight_search/internal/repository"
	"flight_search/internal/service"
)

// IngestService describes the ingestion methods the handlers need.
type IngestService interface {
	SubmitFlight(ctx context.Context, f *models.Flight) (int, error)
	GetFlight(ctx context.Context, flightNo string, departure time.Time) (*models.Flight, error)
	GetImports(ctx context.Context, flightNo, status string, limit, offset int) (*models.FlightImportResponse, error)
}

type FlightHandler struct {
	service IngestService
}

func NewFlightHandler(service IngestService) *FlightHandler {
	return &FlightHandler{service: service}
}

// POST /api/flights
//
// Queues one timetable row. The response carries the import id that
// GET /api/flights/{flight_no}/imports reports on.
func (h *FlightHandler) CreateFlight(w http.ResponseWriter, r *http.Request) {
	var f models.Flight
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	id, err := h.service.SubmitFlight(r.Context(), &f)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     id,
		"status": repository.StatusPending,
	})
}

// GET /api/flights/{flight_no}?departure=2021-09-01T23:20:00
func (h *FlightHandler) GetFlight(w http.ResponseWriter, r *http.Request) {
	flightNo := strings.TrimSpace(chi.URLParam(r, "flight_no"))
	raw := strings.TrimSpace(r.URL.Query().Get("departure"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "departure is required")
		return
	}
	departure, err := time.Parse(models.TimestampLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid departure, expected "+models.TimestampLayout)
		return
	}

	f, err := h.service.GetFlight(r.Context(), flightNo, departure)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// GET /api/flights/{flight_no}/imports?status=&limit=&offset=
func (h *FlightHandler) GetImports(w http.ResponseWriter, r *http.Request) {
	flightNo := strings.TrimSpace(chi.URLParam(r, "flight_no"))
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))

	limit, ok := queryInt(r, "limit", 50, 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	offset, ok := queryInt(r, "offset", 0, 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	resp, err := h.service.GetImports(r.Context(), flightNo, status, limit, offset)
	if err != nil {
		writeIngestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryInt reads an integer query parameter of at least minimum. Missing
// parameters yield def.
func queryInt(r *http.Request, name string, def, minimum int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minimum {
		return 0, false
	}
	return n, true
}

func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "flight not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
