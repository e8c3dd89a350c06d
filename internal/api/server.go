package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/service"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

// ViewerHeader carries the authenticated user ID. Authentication happens in
// front of this server.
const ViewerHeader = "X-User-ID"

const defaultRangeDays = 7

// Server provides the HTTP JSON API.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// API – Reads
	s.mux.HandleFunc("GET /api/users/{id}/availability", s.handleGetAvailability)
	s.mux.HandleFunc("GET /api/overlaps", s.handleGetOverlaps)
	s.mux.HandleFunc("GET /api/groups/{id}/overlay", s.handleGetGroupOverlay)
	s.mux.HandleFunc("POST /api/overlay", s.handleComputeOverlay)

	// API – Own availability
	s.mux.HandleFunc("PUT /api/patterns", s.handleSetPattern)
	s.mux.HandleFunc("PUT /api/overrides", s.handleSetOverride)
	s.mux.HandleFunc("DELETE /api/overrides", s.handleClearOverride)
	s.mux.HandleFunc("POST /api/travel", s.handleAddTravel)
	s.mux.HandleFunc("DELETE /api/travel/{id}", s.handleRemoveTravel)
	s.mux.HandleFunc("POST /api/parse", s.handleParse)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto status codes. Unclassified
// errors are logged and hidden behind a generic message.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, models.ErrInvalidRange), errors.Is(err, models.BadParameterError):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ForbiddenError):
		s.respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, models.NotFoundError):
		s.respondError(w, http.StatusNotFound, "not found")
	default:
		s.logger.WithError(err).Errorf("failed to %s", action)
		s.respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// requireViewer reads the viewer ID header. It writes an error response and
// returns false when the header is absent or invalid.
func (s *Server) requireViewer(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(ViewerHeader)
	if raw == "" {
		s.respondError(w, http.StatusUnauthorized, ViewerHeader+" header is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusUnauthorized, ViewerHeader+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// dateRange reads start and end query parameters. start defaults to today
// and end to a week after start. Ordering is left to the service, which
// reports reversed ranges itself.
func (s *Server) dateRange(w http.ResponseWriter, r *http.Request) (timeslot.Date, timeslot.Date, bool) {
	q := r.URL.Query()

	start := s.svc.Today()
	if raw := q.Get("start"); raw != "" {
		d, err := timeslot.ParseDate(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "start must be a YYYY-MM-DD date")
			return timeslot.Date{}, timeslot.Date{}, false
		}
		start = d
	}

	end := start.AddDays(defaultRangeDays - 1)
	if raw := q.Get("end"); raw != "" {
		d, err := timeslot.ParseDate(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "end must be a YYYY-MM-DD date")
			return timeslot.Date{}, timeslot.Date{}, false
		}
		end = d
	}

	return start, end, true
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	start, end, ok := s.dateRange(w, r)
	if !ok {
		return
	}

	cells, err := s.svc.ResolveEffectiveAvailability(r.Context(), viewerID, userID, start, end)
	if err != nil {
		s.respondServiceError(w, err, "resolve availability")
		return
	}

	s.respondJSON(w, http.StatusOK, cells)
}

func (s *Server) handleGetOverlaps(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	start, end, ok := s.dateRange(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	result, err := s.svc.ComputeFriendOverlaps(r.Context(), viewerID, start, end)
	if err != nil {
		s.respondServiceError(w, err, "compute overlaps")
		return
	}
	if limit > 0 {
		result.Slots = service.TopOverlaps(result, limit)
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetGroupOverlay(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	groupID, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	start, end, ok := s.dateRange(w, r)
	if !ok {
		return
	}

	overlay, err := s.svc.ComputeGroupOverlay(r.Context(), viewerID, groupID, start, end)
	if err != nil {
		s.respondServiceError(w, err, "compute group overlay")
		return
	}

	s.respondJSON(w, http.StatusOK, overlay)
}

type overlayRequest struct {
	MemberIDs []int64       `json:"member_ids"`
	Start     timeslot.Date `json:"start"`
	End       timeslot.Date `json:"end"`
}

func (s *Server) handleComputeOverlay(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	var req overlayRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		s.respondError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	overlay, err := s.svc.ComputeGroupOverlayCounts(r.Context(), viewerID, req.MemberIDs, req.Start, req.End)
	if err != nil {
		s.respondServiceError(w, err, "compute overlay")
		return
	}

	s.respondJSON(w, http.StatusOK, overlay)
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

type patternRequest struct {
	DayOfWeek   int                `json:"day_of_week"`
	TimeBlock   timeslot.TimeBlock `json:"time_block"`
	IsAvailable bool               `json:"is_available"`
}

func (s *Server) handleSetPattern(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	var req patternRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.SetPattern(r.Context(), viewerID, req.DayOfWeek, req.TimeBlock, req.IsAvailable); err != nil {
		s.respondServiceError(w, err, "set weekly pattern")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type overrideRequest struct {
	Date        timeslot.Date      `json:"date"`
	TimeBlock   timeslot.TimeBlock `json:"time_block"`
	IsAvailable bool               `json:"is_available"`
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	var req overrideRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.SetOverride(r.Context(), viewerID, req.Date, req.TimeBlock, req.IsAvailable); err != nil {
		s.respondServiceError(w, err, "set date override")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	date, err := timeslot.ParseDate(q.Get("date"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "date must be a YYYY-MM-DD date")
		return
	}
	block, err := timeslot.ParseTimeBlock(q.Get("time_block"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.ClearOverride(r.Context(), viewerID, date, block); err != nil {
		s.respondServiceError(w, err, "clear date override")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type travelRequest struct {
	StartDate timeslot.Date `json:"start_date"`
	EndDate   timeslot.Date `json:"end_date"`
	Label     string        `json:"label"`
}

func (s *Server) handleAddTravel(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	var req travelRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	period, err := s.svc.AddTravel(r.Context(), viewerID, req.StartDate, req.EndDate, req.Label)
	if err != nil {
		s.respondServiceError(w, err, "add travel period")
		return
	}

	s.respondJSON(w, http.StatusCreated, period)
}

func (s *Server) handleRemoveTravel(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid travel id")
		return
	}

	if err := s.svc.RemoveTravel(r.Context(), viewerID, id); err != nil {
		s.respondServiceError(w, err, "remove travel period")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type parseRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	var req parseRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	report, err := s.svc.ParseAndApply(r.Context(), viewerID, req.Text)
	if err != nil {
		s.respondServiceError(w, err, "apply parsed availability")
		return
	}

	s.respondJSON(w, http.StatusOK, report)
}
