// Package api exposes the booking core over HTTP for the single-page
// client.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"barberclub/internal/availability"
	"barberclub/internal/backend"
	"barberclub/internal/booking"
	"barberclub/internal/locator"
	"barberclub/internal/metrics"
	"barberclub/internal/models"
	"barberclub/internal/report"
	"barberclub/internal/session"
)

// LocatorConfig carries the locator defaults from configuration.
type LocatorConfig struct {
	Fallback        locator.Coordinate
	DefaultRadiusKm float64
}

// Server routes gateway requests to the booking core.
type Server struct {
	wizard    *booking.Wizard
	client    *backend.Client
	sessions  session.Store
	selection *locator.Selection
	locCfg    LocatorConfig
	logger    *zerolog.Logger

	submitLimit rate.Limit
	submitBurst int
	limiters    map[int64]*rate.Limiter
	limiterMu   sync.Mutex

	mux *http.ServeMux
}

// NewServer builds the gateway handler. submitPerMinute <= 0 disables
// submit rate limiting.
func NewServer(
	wizard *booking.Wizard,
	client *backend.Client,
	sessions session.Store,
	locCfg LocatorConfig,
	submitPerMinute int,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		wizard:      wizard,
		client:      client,
		sessions:    sessions,
		selection:   locator.NewSelection(nil),
		locCfg:      locCfg,
		logger:      logger,
		submitLimit: rate.Limit(float64(submitPerMinute) / 60.0),
		submitBurst: submitPerMinute,
		limiters:    make(map[int64]*rate.Limiter),
		mux:         http.NewServeMux(),
	}
	if submitPerMinute <= 0 {
		s.submitLimit = rate.Inf
		s.submitBurst = 1
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/booking/{userID}", s.handleBookingSnapshot)
	s.mux.HandleFunc("GET /api/booking/{userID}/slots", s.handleSlots)
	s.mux.HandleFunc("POST /api/booking/{userID}/service", s.handleSelectService)
	s.mux.HandleFunc("POST /api/booking/{userID}/barber", s.handleSelectBarber)
	s.mux.HandleFunc("POST /api/booking/{userID}/datetime", s.handleSelectDateTime)
	s.mux.HandleFunc("POST /api/booking/{userID}/back", s.handleBack)
	s.mux.HandleFunc("POST /api/booking/{userID}/submit", s.handleSubmit)

	s.mux.HandleFunc("GET /api/catalog/services", s.handleListServices)
	s.mux.HandleFunc("GET /api/catalog/barbers", s.handleListBarbers)

	s.mux.HandleFunc("GET /api/partners/nearby", s.handlePartnersNearby)
	s.mux.HandleFunc("POST /api/partners/{shopID}/select", s.handleSelectPartner)

	s.mux.HandleFunc("PUT /api/admin/appointments/{id}/confirm", s.handleConfirm)
	s.mux.HandleFunc("PUT /api/admin/appointments/{id}/reject", s.handleReject)
	s.mux.HandleFunc("GET /api/admin/report.xlsx", s.handleReport)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// Handler returns the root handler for the gateway.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleBookingSnapshot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking_snapshot")
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	snap, found := s.wizard.Snapshot(userID)
	if !found {
		sess, err := s.wizard.Start(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		snap = sess.Snapshot()
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	slots, err := s.wizard.Slots(r.Context(), userID, date)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format("2006-01-02"),
		"slots": availability.Labels(slots),
	})
}

func (s *Server) handleSelectService(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("select_service")
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var body struct {
		ServiceID int64 `json:"servico_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.respondWizard(w, userID, s.wizard.SelectService(userID, body.ServiceID))
}

func (s *Server) handleSelectBarber(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("select_barber")
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var body struct {
		BarberID int64 `json:"barbeiro_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.respondWizard(w, userID, s.wizard.SelectBarber(userID, body.BarberID))
}

func (s *Server) handleSelectDateTime(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("select_datetime")
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	date, err := time.ParseInLocation("2006-01-02", body.Date, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}
	s.respondWizard(w, userID, s.wizard.SelectDateTime(r.Context(), userID, date, body.Time))
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("back")
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	s.respondWizard(w, userID, s.wizard.Back(userID))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("submit")
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if !s.limiter(userID).Allow() {
		writeError(w, http.StatusTooManyRequests, "too many booking attempts")
		return
	}
	s.respondWizard(w, userID, s.wizard.Submit(r.Context(), userID))
}

// respondWizard maps wizard errors onto HTTP statuses and always
// returns the current snapshot so the client can render inline errors.
func (s *Server) respondWizard(w http.ResponseWriter, userID int64, err error) {
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrPendingExists):
		status = http.StatusConflict
	case errors.Is(err, booking.ErrSubmitInFlight):
		status = http.StatusConflict
	case errors.Is(err, booking.ErrInvalidTransition):
		status = http.StatusConflict
	default:
		status = http.StatusBadGateway
	}

	snap, _ := s.wizard.Snapshot(userID)
	resp := map[string]any{"session": snap}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_services")
	shopID, _ := strconv.ParseInt(r.URL.Query().Get("barbearia_id"), 10, 64)
	services, err := s.client.ListServices(r.Context(), shopID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (s *Server) handleListBarbers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_barbers")
	shopID, _ := strconv.ParseInt(r.URL.Query().Get("barbearia_id"), 10, 64)
	barbers, err := s.client.ListBarbers(r.Context(), shopID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, barbers)
}

func (s *Server) handlePartnersNearby(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("partners_nearby")
	metrics.IncLocatorQueries()

	q := r.URL.Query()
	origin := s.parseOrigin(q.Get("lat"), q.Get("lng"))
	radius := s.locCfg.DefaultRadiusKm
	if v := q.Get("radius_km"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = parsed
	}

	shops, err := s.client.ListPartnerBarbershops(r.Context())
	if err != nil {
		// No partial or stale data on fetch failure.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	ranked := locator.RankByDistance(origin, shops, radius, q.Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"origin":    origin,
		"radius_km": radius,
		"shops":     ranked,
	})
}

// parseOrigin returns the user-provided coordinate, or the configured
// fallback when absent or unparsable (geolocation denied or missing).
func (s *Server) parseOrigin(latStr, lngStr string) *locator.Coordinate {
	if latStr == "" || lngStr == "" {
		fallback := locator.ResolveOrigin(nil, s.locCfg.Fallback, s.logger)
		return &fallback
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil {
		fallback := locator.ResolveOrigin(nil, s.locCfg.Fallback, s.logger)
		return &fallback
	}
	return &locator.Coordinate{Lat: lat, Lng: lng}
}

func (s *Server) handleSelectPartner(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("select_partner")
	shopID, ok := pathID(w, r, "shopID")
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	shops, err := s.client.ListPartnerBarbershops(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	var picked *models.Barbershop
	for i := range shops {
		if shops[i].ID == shopID {
			picked = &shops[i]
			break
		}
	}
	if picked == nil {
		writeError(w, http.StatusNotFound, "barbershop not found")
		return
	}

	s.selection.Select(*picked)
	if err := s.sessions.SetSelectedBarbershop(r.Context(), userID, shopID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, picked)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm_appointment")
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.client.ConfirmAppointment(r.Context(), id); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusConfirmed})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reject_appointment")
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.client.RejectAppointment(r.Context(), id); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.StatusCancelled})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("report")
	appointments, err := s.client.ListAppointments(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	names := make(map[int64]string)
	for _, a := range appointments {
		if _, ok := names[a.UserID]; ok {
			continue
		}
		if name, _, err := s.sessions.User(r.Context(), a.UserID); err == nil {
			names[a.UserID] = name
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="agendamentos.xlsx"`)
	if err := report.BuildAppointments(appointments, names, w); err != nil {
		s.logger.Error().Err(err).Msg("appointment export failed")
	}
}

func (s *Server) limiter(userID int64) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	l, ok := s.limiters[userID]
	if !ok {
		l = rate.NewLimiter(s.submitLimit, s.submitBurst)
		s.limiters[userID] = l
	}
	return l
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
