package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-management-api/internal/metrics"
	mw "clinic-management-api/internal/middleware"
	"clinic-management-api/internal/ratelimit"
	"clinic-management-api/internal/service"
	"clinic-management-api/internal/store"
)

type Handler struct {
	patients     *service.PatientService
	appointments *service.AppointmentService
	login        *service.LoginService
	limiter      *ratelimit.Limiter
	log          *slog.Logger
}

func New(
	patients *service.PatientService,
	appointments *service.AppointmentService,
	login *service.LoginService,
	limiter *ratelimit.Limiter,
	log *slog.Logger,
) *Handler {
	return &Handler{
		patients:     patients,
		appointments: appointments,
		login:        login,
		limiter:      limiter,
		log:          log,
	}
}

// Routes wires the public surface: /login and the ops endpoints stay
// open, everything else sits behind bearer auth.
func (h *Handler) Routes(secret string, users store.UserStore, throttler *mw.Throttler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.With(mw.Throttle(throttler)).Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth(secret, users))

		r.Post("/patients", h.createPatient)
		r.Get("/patients", h.listPatients)
		r.Put("/patients/{id}", h.updatePatient)
		r.Delete("/patients/{id}", h.anonymizePatient)

		r.Post("/appointments", h.createAppointment)
		r.Get("/appointments", h.listAppointments)
		r.Get("/patients/{id}/appointments", h.listPatientAppointments)
		r.Put("/appointments/{id}", h.updateAppointment)
		r.Delete("/appointments/{id}", h.deleteAppointment)
	})

	return r
}

// fieldError is the structured, per-field shape validation failures
// surface with. Domain errors use a single message instead.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFieldErrors(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": errs})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps a domain error to its status and passes the message
// through verbatim. Anything unrecognized is a 500 with a generic body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var de *service.Error
	if errors.As(err, &de) {
		writeJSON(w, statusFor(de.Code), map[string]string{"error": de.Message})
		return
	}
	h.log.Error("request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal error."})
}

func statusFor(code service.Code) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeConflict:
		return http.StatusConflict
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
