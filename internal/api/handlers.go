package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"belleza/internal/database"
	"belleza/internal/models"
)

const dateLayout = "2006-01-02"

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	employeeID := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	if employeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	var serviceID int64
	if raw := strings.TrimSpace(r.URL.Query().Get("service_id")); raw != "" {
		serviceID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid service_id")
			return
		}
	}

	// Slot lookups are throttled per client when the caller identifies one.
	if clientID := strings.TrimSpace(r.URL.Query().Get("client_id")); clientID != "" && s.slotCache != nil {
		allowed, rlErr := s.slotCache.CheckRateLimit(r.Context(), clientID, s.booking.RateLimitRequests, s.booking.RateLimitWindow())
		if rlErr == nil && !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	result, err := s.svc.GetAvailableSlots(r.Context(), employeeID, serviceID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute slots")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"date":        dateStr,
		"slots":       result.Slots,
		"reason":      result.Reason,
	})
}

type createReservationRequest struct {
	ClientID   string `json:"client_id"`
	EmployeeID string `json:"employee_id"`
	ServiceID  int64  `json:"service_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	Comment    string `json:"comment"`
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createReservation(w, r)
	case http.MethodGet:
		s.listReservations(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createReservation(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var body createReservationRequest
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	body.ClientID = strings.TrimSpace(body.ClientID)
	body.EmployeeID = strings.TrimSpace(body.EmployeeID)
	if body.ClientID == "" || body.EmployeeID == "" || body.ServiceID == 0 {
		writeError(w, http.StatusBadRequest, "client_id, employee_id and service_id are required")
		return
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(body.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	startMinute, err := models.ParseClock(body.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time; expected HH:MM")
		return
	}

	if s.slotCache != nil {
		allowed, rlErr := s.slotCache.CheckRateLimit(r.Context(), body.ClientID, s.booking.RateLimitRequests, s.booking.RateLimitWindow())
		if rlErr == nil && !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	reservation := &models.Reservation{
		ClientID:    body.ClientID,
		EmployeeID:  body.EmployeeID,
		ServiceID:   body.ServiceID,
		Date:        date,
		StartMinute: startMinute,
		Comment:     body.Comment,
	}

	if err := s.svc.CreateReservation(r.Context(), reservation); err != nil {
		switch {
		case errors.Is(err, database.ErrSlotTaken):
			writeError(w, http.StatusConflict, "slot already taken")
		case errors.Is(err, database.ErrPastDate), errors.Is(err, database.ErrDateTooFar):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, database.ErrServiceNotFound):
			writeError(w, http.StatusNotFound, "service not found")
		default:
			writeError(w, http.StatusServiceUnavailable, "failed to create reservation")
		}
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

func (s *HTTPServer) listReservations(w http.ResponseWriter, r *http.Request) {
	startStr := strings.TrimSpace(r.URL.Query().Get("start"))
	endStr := strings.TrimSpace(r.URL.Query().Get("end"))
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	reservations, err := s.svc.GetReservationsByDateRange(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

type transitionRequest struct {
	Version int64 `json:"version"`
}

// handleReservation serves /api/v1/reservations/{public_id} and
// /api/v1/reservations/{id}/{confirm|cancel|complete}.
func (s *HTTPServer) handleReservation(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/reservations/"
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.getReservation(w, r, parts[0])
	case 2:
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.transitionReservation(w, r, parts[0], parts[1])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) getReservation(w http.ResponseWriter, r *http.Request, publicID string) {
	reservation, err := s.svc.GetReservationByPublicID(r.Context(), publicID)
	if err != nil {
		if errors.Is(err, database.ErrReservationNotFound) {
			writeError(w, http.StatusNotFound, "reservation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load reservation")
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) transitionReservation(w http.ResponseWriter, r *http.Request, idStr, action string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	var body transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Version <= 0 {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	switch action {
	case "confirm":
		err = s.svc.ConfirmReservation(r.Context(), id, body.Version)
	case "cancel":
		err = s.svc.CancelReservation(r.Context(), id, body.Version)
	case "complete":
		err = s.svc.CompleteReservation(r.Context(), id, body.Version)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, database.ErrConcurrentModification):
			writeError(w, http.StatusConflict, "reservation was modified concurrently")
		case errors.Is(err, database.ErrReservationNotFound):
			writeError(w, http.StatusNotFound, "reservation not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update reservation")
		}
		return
	}

	reservation, err := s.svc.GetReservation(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

// handleClientReservations serves /api/v1/clients/{client_id}/reservations.
func (s *HTTPServer) handleClientReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/clients/"
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "reservations" || strings.TrimSpace(parts[0]) == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	reservations, err := s.svc.GetClientReservations(r.Context(), parts[0])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

// handleEmployeeReservations serves
// /api/v1/employees/{employee_id}/reservations?date=YYYY-MM-DD, the
// employee's agenda for one day. Missing date means today.
func (s *HTTPServer) handleEmployeeReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/employees/"
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "reservations" || strings.TrimSpace(parts[0]) == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	date := time.Now().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	reservations, err := s.svc.GetEmployeeReservations(r.Context(), parts[0], date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id":  parts[0],
		"date":         date.Format(dateLayout),
		"reservations": reservations,
	})
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	services, err := s.svc.GetActiveServices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load services")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleAgendaExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	start := time.Now().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 14)

	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		start = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end before start")
		return
	}

	daily, err := s.svc.GetDailyReservations(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	path, err := s.exporter.AgendaWorkbook(start, end, daily)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create export")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

// handleReservationsExport writes the flat reservations workbook for a
// date range, a week back through two months ahead by default.
func (s *HTTPServer) handleReservationsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are not configured")
		return
	}

	start := time.Now().AddDate(0, 0, -7)
	end := time.Now().AddDate(0, 0, 60)

	if raw := strings.TrimSpace(r.URL.Query().Get("start")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		start = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("end")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end before start")
		return
	}

	reservations, err := s.svc.GetReservationsByDateRange(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	path, err := s.exporter.ReservationsWorkbook(reservations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create export")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
