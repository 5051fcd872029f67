package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"countrypulse/internal/api/swagger"
	"countrypulse/internal/countries"
	"countrypulse/internal/gateway"
	"countrypulse/internal/metrics"
	"countrypulse/internal/report"
	"countrypulse/internal/storage"
)

// Server maps HTTP requests onto the country service and summary reporter.
type Server struct {
	svc      *countries.Service
	reporter *report.Reporter
	store    storage.Storage
	logger   *zap.Logger
}

func NewServer(svc *countries.Service, reporter *report.Reporter, store storage.Storage, logger *zap.Logger) *Server {
	return &Server{
		svc:      svc,
		reporter: reporter,
		store:    store,
		logger:   logger.Named("api"),
	}
}

// Router builds the HTTP router with all routes, metrics middleware and the
// operational endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	r.HandleFunc("/livez", s.handleHealthz).Methods(http.MethodGet)

	r.HandleFunc("/countries/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/countries/image", s.handleSummaryImage).Methods(http.MethodGet)
	r.HandleFunc("/countries", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/countries/{name}", s.handleGetByName).Methods(http.MethodGet)
	r.HandleFunc("/countries/{name}", s.handleDeleteByName).Methods(http.MethodDelete)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	r.PathPrefix("/swagger/").Handler(http.StripPrefix("/swagger", swagger.Handler()))

	return r
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		metrics.RequestsTotal.WithLabelValues(route, r.Method).Inc()
		metrics.RequestDurationSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		if rec.status >= 400 {
			metrics.RequestErrorsTotal.WithLabelValues(route, http.StatusText(rec.status)).Inc()
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var ue *gateway.UpstreamError
	var ve *countries.ValidationError
	switch {
	case errors.As(err, &ue):
		return http.StatusServiceUnavailable
	case errors.Is(err, countries.ErrNoData), errors.Is(err, countries.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	written, err := s.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "countries refreshed successfully and image created",
		"countries": written,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.svc.List(r.Context(), q.Get("region"), q.Get("currency"), q.Get("sort"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if list == nil {
		list = []storage.Country{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetByName(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	c, err := s.svc.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteByName(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.svc.DeleteByName(r.Context(), name); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSummaryImage(w http.ResponseWriter, r *http.Request) {
	path := s.reporter.ArtifactPath()
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "summary image not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}
