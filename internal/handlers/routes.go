package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"flight_search/internal/metrics"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID keeps a caller supplied X-Request-ID or assigns a new uuid, and
// echoes it in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RouterOptions collects the handlers mounted by NewRouter. A nil handler
// leaves its routes unmounted.
type RouterOptions struct {
	Search         *SearchHandler
	Flights        *FlightHandler
	AllowedOrigins []string
}

func NewRouter(opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if opts.Search != nil {
		RegisterSearchRoutes(r, opts.Search)
	}
	if opts.Flights != nil {
		RegisterFlightRoutes(r, opts.Flights)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})

	return c.Handler(r)
}

func RegisterSearchRoutes(r chi.Router, h *SearchHandler) {
	r.Post("/api/search", h.Search)
	r.Get("/api/airports", h.Airports)
}

func RegisterFlightRoutes(r chi.Router, h *FlightHandler) {
	r.Route("/api/flights", func(r chi.Router) {
		r.Post("/", h.CreateFlight)
		r.Get("/{flight_no}", h.GetFlight)
		r.Get("/{flight_no}/imports", h.GetImports)
	})
}
