package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-management-api/internal/auth"
	"clinic-management-api/internal/handler"
	mw "clinic-management-api/internal/middleware"
	"clinic-management-api/internal/model"
	"clinic-management-api/internal/ratelimit"
	"clinic-management-api/internal/service"
	"clinic-management-api/internal/store"
)

const (
	testSecret   = "handler-test-secret"
	testEmail    = "doc@clinic.test"
	testPassword = "correct-horse"
)

type fixture struct {
	router http.Handler
	users  *store.MemoryUserStore
}

func setup(t *testing.T) *fixture {
	t.Helper()

	patients := store.NewMemoryPatientStore()
	appointments := store.NewMemoryAppointmentStore()
	users := store.NewMemoryUserStore()
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryAttemptStore())

	h := handler.New(
		service.NewPatientService(patients, log),
		service.NewAppointmentService(appointments, patients, log),
		service.NewLoginService(users, testSecret, log),
		limiter,
		log,
	)

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	users.Put(model.User{ID: uuid.New().String(), Email: testEmail, PasswordHash: hash})

	// throttle wide open so only the lockout shapes 429s here
	router := h.Routes(testSecret, users, mw.NewThrottler(1000, 1000))
	return &fixture{router: router, users: users}
}

func (f *fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/login", map[string]string{
		"email": testEmail, "password": testPassword,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, "login: %s", rec.Body)

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (f *fixture) createPatient(t *testing.T, token, name string, email *string) model.Patient {
	t.Helper()

	body := map[string]any{
		"name": name, "phone": "5511999990000", "birthDate": "1990-05-20",
		"gender": "female", "height": 1.68, "weight": 62.5,
	}
	if email != nil {
		body["email"] = *email
	}
	rec := f.do(t, http.MethodPost, "/patients", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, "create patient: %s", rec.Body)

	var p model.Patient
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}

func futureDate(hours int) string {
	return time.Now().UTC().Truncate(time.Hour).Add(time.Duration(hours) * time.Hour).Format(time.RFC3339)
}

// ----- login -----

func TestLogin(t *testing.T) {
	f := setup(t)

	tok := f.login(t)
	claims, err := auth.ParseToken(tok, testSecret)
	require.NoError(t, err)
	assert.Equal(t, testEmail, claims.Email)
	assert.NotEmpty(t, claims.SessionID)
}

func TestLoginValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "secret"}},
		{"short password", map[string]string{"email": testEmail, "password": "abc"}},
		{"empty body", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/login", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/login", map[string]string{
		"email": testEmail, "password": "wrong-pass",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials.")
}

func TestLoginLockout(t *testing.T) {
	f := setup(t)

	bad := map[string]string{"email": testEmail, "password": "wrong-pass"}
	for i := 0; i < 5; i++ {
		rec := f.do(t, http.MethodPost, "/login", bad, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	// sixth attempt is blocked even with correct credentials
	rec := f.do(t, http.MethodPost, "/login", map[string]string{
		"email": testEmail, "password": testPassword,
	}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many login attempts.")

	// a different client IP is unaffected
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]string{
		"email": testEmail, "password": testPassword,
	}))
	req := httptest.NewRequest(http.MethodPost, "/login", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	other := httptest.NewRecorder()
	f.router.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestLoginSuccessResetsLockout(t *testing.T) {
	f := setup(t)

	bad := map[string]string{"email": testEmail, "password": "wrong-pass"}
	for i := 0; i < 4; i++ {
		rec := f.do(t, http.MethodPost, "/login", bad, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	f.login(t)

	// counter is back to zero: four more failures still pass the gate
	for i := 0; i < 4; i++ {
		rec := f.do(t, http.MethodPost, "/login", bad, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

// ----- auth middleware -----

func TestAuthRequired(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/patients", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/patients", nil, "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaleSessionRejected(t *testing.T) {
	f := setup(t)

	first := f.login(t)
	rec := f.do(t, http.MethodGet, "/patients", nil, first)
	require.Equal(t, http.StatusOK, rec.Code)

	// a newer login invalidates the earlier, still-unexpired token
	second := f.login(t)

	rec = f.do(t, http.MethodGet, "/patients", nil, first)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session is no longer valid.")

	rec = f.do(t, http.MethodGet, "/patients", nil, second)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ----- patients -----

func TestCreatePatient(t *testing.T) {
	f := setup(t)
	tok := f.login(t)

	email := "alice@clinic.test"
	p := f.createPatient(t, tok, "Alice Moreira", &email)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Alice Moreira", *p.Name)
	assert.False(t, p.IsAnonymized)
}

func TestCreatePatientValidation(t *testing.T) {
	f := setup(t)
	tok := f.login(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"short name", map[string]any{"name": "Al", "phone": "5511999990000", "birthDate": "1990-05-20", "gender": "f", "height": 1.6, "weight": 60.0}, "name"},
		{"bad email", map[string]any{"name": "Alice", "email": "nope", "phone": "5511999990000", "birthDate": "1990-05-20", "gender": "f", "height": 1.6, "weight": 60.0}, "email"},
		{"short phone", map[string]any{"name": "Alice", "phone": "123", "birthDate": "1990-05-20", "gender": "f", "height": 1.6, "weight": 60.0}, "phone"},
		{"bad birth date", map[string]any{"name": "Alice", "phone": "5511999990000", "birthDate": "soon", "gender": "f", "height": 1.6, "weight": 60.0}, "birthDate"},
		{"negative height", map[string]any{"name": "Alice", "phone": "5511999990000", "birthDate": "1990-05-20", "gender": "f", "height": -1.0, "weight": 60.0}, "height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/patients", tt.body, tok)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var res struct {
				Error []struct {
					Field string `json:"field"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
			require.NotEmpty(t, res.Error)
			assert.Equal(t, tt.field, res.Error[0].Field)
		})
	}
}

func TestDuplicatePatientEmail(t *testing.T) {
	f := setup(t)
	tok := f.login(t)

	email := "alice@clinic.test"
	f.createPatient(t, tok, "Alice Moreira", &email)

	body := map[string]any{
		"name": "Other Alice", "email": email, "phone": "5511999990000",
		"birthDate": "1990-05-20", "gender": "female", "height": 1.7, "weight": 61.0,
	}
	rec := f.do(t, http.MethodPost, "/patients", body, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Patient already exists with this email.")
}

func TestListPatientsSorted(t *testing.T) {
	f := setup(t)
	tok := f.login(t)

	for _, name := range []string{"Carla Dias", "Ana Silva", "Bruno Costa"} {
		f.createPatient(t, tok, name, nil)
	}

	rec := f.do(t, http.MethodGet, "/patients", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	var patients []model.Patient
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&patients))
	require.Len(t, patients, 3)
	assert.Equal(t, "Ana Silva", *patients[0].Name)
	assert.Equal(t, "Bruno Costa", *patients[1].Name)
	assert.Equal(t, "Carla Dias", *patients[2].Name)
}

func TestUpdatePatient(t *testing.T) {
	f := setup(t)
	tok := f.login(t)

	p := f.createPatient(t, tok, "Alice Moreira", nil)

	rec := f.do(t, http.MethodPut, "/patients/"+p.ID, map[string]any{"phone": "5511888880000"}, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Patient
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, "5511888880000", *updated.Phone)
	assert.Equal(t, "Alice Moreira", *updated.Name)

	rec = f.do(t, http.MethodPut, "/patients/"+uuid.New().String(), map[string]any{"phone": "5511888880000"}, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymizePatient(t *testing.T) {
	f := setup(t)
	tok := f.login(t)

	email := "alice@clinic.test"
	p := f.createPatient(t, tok, "Alice Moreira", &email)

	rec := f.do(t, http.MethodDelete, "/patients/"+p.ID, nil, tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// second anonymize is rejected
	rec = f.do(t, http.MethodDelete, "/patients/"+p.ID, nil, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Patient is already anonymized.")

	rec = f.do(t, http.MethodDelete, "/patients/"+uuid.New().String(), nil, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- appointments -----

func TestCreateAppointment(t *testing.T) {
	f := setup(t)
	tok := f.login(t)
	p := f.createPatient(t, tok, "Alice Moreira", nil)

	date := futureDate(24)
	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patientId": p.ID, "date": date, "notes": "first visit",
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code, "create: %s", rec.Body)

	var a model.Appointment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&a))
	assert.Equal(t, p.ID, a.PatientID)
	want, _ := time.Parse(time.RFC3339, date)
	assert.True(t, a.Date.Equal(want))
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := setup(t)
	tok := f.login(t)
	p := f.createPatient(t, tok, "Alice Moreira", nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad patient id", map[string]any{"patientId": "not-a-uuid", "date": futureDate(24)}},
		{"past date", map[string]any{"patientId": p.ID, "date": "2020-01-01T10:00:00Z"}},
		{"unparseable date", map[string]any{"patientId": p.ID, "date": "tomorrow"}},
		{"missing date", map[string]any{"patientId": p.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/appointments", tt.body, tok)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateAppointmentUnknownPatient(t *testing.T) {
	f := setup(t)
	tok := f.login(t)

	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patientId": uuid.New().String(), "date": futureDate(24),
	}, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Patient not found.")
}

func TestAppointmentSlotConflict(t *testing.T) {
	f := setup(t)
	tok := f.login(t)
	alice := f.createPatient(t, tok, "Alice Moreira", nil)
	bruno := f.createPatient(t, tok, "Bruno Costa", nil)

	slot := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)

	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patientId": alice.ID, "date": slot.Add(10 * time.Minute).Format(time.RFC3339),
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)

	// same hour, different minutes, different patient: still a conflict
	rec = f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patientId": bruno.ID, "date": slot.Add(45 * time.Minute).Format(time.RFC3339),
	}, tok)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "This time slot is already booked.")
}

func TestListAppointmentsSorted(t *testing.T) {
	f := setup(t)
	tok := f.login(t)
	p := f.createPatient(t, tok, "Alice Moreira", nil)

	for _, h := range []int{72, 24, 48} {
		rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
			"patientId": p.ID, "date": futureDate(h),
		}, tok)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/appointments", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	var appointments []model.Appointment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&appointments))
	require.Len(t, appointments, 3)
	assert.True(t, appointments[0].Date.Before(appointments[1].Date))
	assert.True(t, appointments[1].Date.Before(appointments[2].Date))
}

func TestListAppointmentsByPatient(t *testing.T) {
	f := setup(t)
	tok := f.login(t)
	alice := f.createPatient(t, tok, "Alice Moreira", nil)
	bruno := f.createPatient(t, tok, "Bruno Costa", nil)

	for i, id := range []string{alice.ID, bruno.ID} {
		rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
			"patientId": id, "date": futureDate(24 + i),
		}, tok)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/patients/%s/appointments", alice.ID), nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)

	var appointments []model.Appointment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&appointments))
	require.Len(t, appointments, 1)
	assert.Equal(t, alice.ID, appointments[0].PatientID)
}

func TestUpdateAndDeleteAppointment(t *testing.T) {
	f := setup(t)
	tok := f.login(t)
	p := f.createPatient(t, tok, "Alice Moreira", nil)

	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"patientId": p.ID, "date": futureDate(24),
	}, tok)
	require.Equal(t, http.StatusCreated, rec.Code)
	var a model.Appointment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&a))

	rec = f.do(t, http.MethodPut, "/appointments/"+a.ID, map[string]any{"notes": "bring exams"}, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Appointment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "bring exams", *updated.Notes)

	rec = f.do(t, http.MethodPut, "/appointments/"+uuid.New().String(), map[string]any{"notes": "x"}, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/appointments/"+a.ID, nil, tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/appointments/"+a.ID, nil, tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- ops -----

func TestHealthz(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
