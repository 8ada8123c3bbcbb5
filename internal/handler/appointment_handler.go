package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"clinic-management-api/internal/metrics"
	"clinic-management-api/internal/service"
	"clinic-management-api/internal/store"
)

type appointmentRequest struct {
	PatientID *string `json:"patientId"`
	Date      *string `json:"date"`
	Notes     *string `json:"notes"`
}

// validate runs the pre-rule checks: identifier shape and a strictly
// future timestamp. These surface as 400s before the rule layer runs.
func (r appointmentRequest) validate(partial bool, now time.Time) ([]fieldError, time.Time) {
	var errs []fieldError
	var date time.Time

	if r.PatientID == nil {
		if !partial {
			errs = append(errs, fieldError{Field: "patientId", Message: "Invalid patient ID"})
		}
	} else if !govalidator.IsUUID(*r.PatientID) {
		errs = append(errs, fieldError{Field: "patientId", Message: "Invalid patient ID"})
	}

	if r.Date == nil {
		if !partial {
			errs = append(errs, fieldError{Field: "date", Message: "Invalid date"})
		}
	} else {
		var ok bool
		if date, ok = parseDate(*r.Date); !ok {
			errs = append(errs, fieldError{Field: "date", Message: "Invalid date"})
		} else if !date.After(now) {
			errs = append(errs, fieldError{Field: "date", Message: "The appointment date must be in the future"})
		}
	}

	return errs, date
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	errs, date := req.validate(false, time.Now())
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	a, err := h.appointments.Create(r.Context(), service.AppointmentInput{
		PatientID: *req.PatientID,
		Date:      date,
		Notes:     req.Notes,
	})
	if err != nil {
		var de *service.Error
		if errors.As(err, &de) && de.Code == service.CodeConflict {
			metrics.SlotConflicts.Inc()
		}
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointments.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointments)
}

func (h *Handler) listPatientAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.appointments.ListByPatient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointments)
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	errs, date := req.validate(true, time.Now())
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	u := store.AppointmentUpdate{
		PatientID: req.PatientID,
		Notes:     req.Notes,
	}
	if req.Date != nil {
		u.Date = &date
	}

	a, err := h.appointments.Update(r.Context(), id, u)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := h.appointments.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
