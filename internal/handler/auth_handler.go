package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asaskevich/govalidator"

	"clinic-management-api/internal/metrics"
	mw "clinic-management-api/internal/middleware"
	"clinic-management-api/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := mw.ClientIP(r)

	blocked, err := h.limiter.Blocked(r.Context(), ip)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if blocked {
		metrics.LoginAttempts.WithLabelValues("blocked").Inc()
		writeJSON(w, http.StatusTooManyRequests,
			map[string]string{"error": "Too many login attempts. Please try again later."})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	var errs []fieldError
	if !govalidator.IsEmail(req.Email) {
		errs = append(errs, fieldError{Field: "email", Message: "Invalid email address"})
	}
	if len(req.Password) < 4 {
		errs = append(errs, fieldError{Field: "password", Message: "Password must be at least 4 characters long"})
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	res, err := h.login.Execute(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var de *service.Error
		if errors.As(err, &de) && de.Code == service.CodeUnauthorized {
			// only credential failures feed the lockout counter
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			if ferr := h.limiter.Fail(r.Context(), ip); ferr != nil {
				h.log.Error("recording login failure", "err", ferr)
			}
		}
		h.writeError(w, err)
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	if err := h.limiter.Reset(r.Context(), ip); err != nil {
		h.log.Error("clearing login attempts", "err", err)
	}

	writeJSON(w, http.StatusOK, res)
}
