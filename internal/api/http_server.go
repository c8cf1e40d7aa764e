package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"belleza/internal/config"
	"belleza/internal/domain"
	"belleza/internal/metrics"
	"belleza/internal/models"
)

// WorkbookExporter renders reservations into xlsx workbooks.
type WorkbookExporter interface {
	AgendaWorkbook(startDate, endDate time.Time, daily map[string][]*models.Reservation) (string, error)
	ReservationsWorkbook(reservations []*models.Reservation) (string, error)
}

// HTTPServer exposes the salon booking REST API.
type HTTPServer struct {
	cfg       config.APIConfig
	booking   config.BookingConfig
	svc       domain.ReservationService
	slotCache domain.SlotCache
	exporter  WorkbookExporter
	server    *http.Server
	auth      *HTTPAuth
}

func NewHTTPServer(cfg config.APIConfig, booking config.BookingConfig, svc domain.ReservationService, slotCache domain.SlotCache, exporter WorkbookExporter) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, booking: booking, svc: svc, slotCache: slotCache, exporter: exporter}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/slots", instrumented("slots", srv.handleSlots))
	mux.HandleFunc("/api/v1/reservations", instrumented("reservations", srv.handleReservations))
	mux.HandleFunc("/api/v1/reservations/", instrumented("reservation", srv.handleReservation))
	mux.HandleFunc("/api/v1/clients/", instrumented("client_reservations", srv.handleClientReservations))
	mux.HandleFunc("/api/v1/employees/", instrumented("employee_reservations", srv.handleEmployeeReservations))
	mux.HandleFunc("/api/v1/services", instrumented("services", srv.handleServices))
	mux.HandleFunc("/api/v1/exports/agenda", instrumented("export_agenda", srv.handleAgendaExport))
	mux.HandleFunc("/api/v1/exports/reservations", instrumented("export_reservations", srv.handleReservationsExport))
	mux.HandleFunc("/health", srv.handleHealth)

	handler := loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	log.Printf("HTTP API listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the fully wrapped handler, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func instrumented(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(endpoint)
		next(w, r)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)
		log.Printf("http method=%s path=%s status=%d dur=%s", r.Method, r.URL.Path, recorder.status, dur)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
