package store

import (
	"context"
	"errors"
	"time"

	"clinic-management-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup, update or delete misses.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint rejects a
	// write (duplicate patient email, occupied appointment slot). The
	// constraints live in the database so concurrent check-then-create
	// races still end here instead of corrupting the invariant.
	ErrConflict = errors.New("conflict")
)

// PatientUpdate carries the fields of a partial update; nil means
// "leave unchanged".
type PatientUpdate struct {
	Name      *string
	Email     *string
	Phone     *string
	BirthDate *time.Time
	Gender    *string
	Height    *float64
	Weight    *float64
}

// AppointmentUpdate mirrors PatientUpdate for appointments.
type AppointmentUpdate struct {
	PatientID *string
	Date      *time.Time
	Notes     *string
}

type PatientStore interface {
	Create(ctx context.Context, p *model.Patient) error
	ByID(ctx context.Context, id string) (*model.Patient, error)
	ByEmail(ctx context.Context, email string) (*model.Patient, error)
	// All returns every patient ordered by name ascending.
	All(ctx context.Context) ([]model.Patient, error)
	Update(ctx context.Context, id string, u PatientUpdate) (*model.Patient, error)
	// Anonymize nulls all personal fields and flips is_anonymized.
	Anonymize(ctx context.Context, id string) error
}

type AppointmentStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	ByID(ctx context.Context, id string) (*model.Appointment, error)
	// InSlot reports whether any appointment, for any patient, falls
	// inside [slotStart, slotEnd].
	InSlot(ctx context.Context, slotStart, slotEnd time.Time) (bool, error)
	// All returns every appointment ordered by date ascending.
	All(ctx context.Context) ([]model.Appointment, error)
	ByPatient(ctx context.Context, patientID string) ([]model.Appointment, error)
	Update(ctx context.Context, id string, u AppointmentUpdate) (*model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

type UserStore interface {
	ByID(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	// SetCurrentSession overwrites the user's sole session id; the
	// previous value (and any token carrying it) stops verifying.
	SetCurrentSession(ctx context.Context, id string, sessionID *string) error
}
