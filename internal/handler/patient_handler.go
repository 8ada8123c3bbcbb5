package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"clinic-management-api/internal/service"
	"clinic-management-api/internal/store"
)

// patientRequest covers both create (all fields but email required) and
// partial update (any subset). Pointers distinguish absent from zero.
type patientRequest struct {
	Name      *string  `json:"name"`
	Email     *string  `json:"email"`
	Phone     *string  `json:"phone"`
	BirthDate *string  `json:"birthDate"`
	Gender    *string  `json:"gender"`
	Height    *float64 `json:"height"`
	Weight    *float64 `json:"weight"`
}

// accepts RFC 3339 or a plain calendar date
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (r patientRequest) validate(partial bool) ([]fieldError, time.Time) {
	var errs []fieldError
	var birth time.Time

	if r.Name == nil && !partial {
		errs = append(errs, fieldError{Field: "name", Message: "Name is required"})
	} else if r.Name != nil && len(*r.Name) < 3 {
		errs = append(errs, fieldError{Field: "name", Message: "Name must be at least 3 characters long"})
	}
	if r.Email != nil && !govalidator.IsEmail(*r.Email) {
		errs = append(errs, fieldError{Field: "email", Message: "Invalid email address"})
	}
	if r.Phone == nil && !partial {
		errs = append(errs, fieldError{Field: "phone", Message: "Invalid phone number"})
	} else if r.Phone != nil && len(*r.Phone) < 10 {
		errs = append(errs, fieldError{Field: "phone", Message: "Invalid phone number"})
	}
	if r.BirthDate == nil {
		if !partial {
			errs = append(errs, fieldError{Field: "birthDate", Message: "Birth date is required"})
		}
	} else {
		var ok bool
		if birth, ok = parseDate(*r.BirthDate); !ok {
			errs = append(errs, fieldError{Field: "birthDate", Message: "Invalid date"})
		}
	}
	if r.Gender == nil && !partial {
		errs = append(errs, fieldError{Field: "gender", Message: "Gender is required"})
	}
	if r.Height == nil && !partial {
		errs = append(errs, fieldError{Field: "height", Message: "Height must be positive"})
	} else if r.Height != nil && *r.Height <= 0 {
		errs = append(errs, fieldError{Field: "height", Message: "Height must be positive"})
	}
	if r.Weight == nil && !partial {
		errs = append(errs, fieldError{Field: "weight", Message: "Weight must be positive"})
	} else if r.Weight != nil && *r.Weight <= 0 {
		errs = append(errs, fieldError{Field: "weight", Message: "Weight must be positive"})
	}

	return errs, birth
}

func (h *Handler) createPatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	errs, birth := req.validate(false)
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	p, err := h.patients.Create(r.Context(), service.PatientInput{
		Name:      *req.Name,
		Email:     req.Email,
		Phone:     *req.Phone,
		BirthDate: birth,
		Gender:    *req.Gender,
		Height:    *req.Height,
		Weight:    *req.Weight,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

func (h *Handler) updatePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	errs, birth := req.validate(true)
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	u := store.PatientUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Gender: req.Gender,
		Height: req.Height,
		Weight: req.Weight,
	}
	if req.BirthDate != nil {
		u.BirthDate = &birth
	}

	p, err := h.patients.Update(r.Context(), id, u)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) anonymizePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.patients.Anonymize(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
