package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clinic-management-api/internal/model"
	"clinic-management-api/internal/store"
)

type AppointmentInput struct {
	PatientID string
	Date      time.Time
	Notes     *string
}

type AppointmentService struct {
	appointments store.AppointmentStore
	patients     store.PatientStore
	log          *slog.Logger
}

func NewAppointmentService(appointments store.AppointmentStore, patients store.PatientStore, log *slog.Logger) *AppointmentService {
	return &AppointmentService{appointments: appointments, patients: patients, log: log}
}

// slotBounds returns the clock-hour bucket containing t:
// [HH:00:00.000, HH:59:59.999]. One appointment per bucket, clinic-wide.
func slotBounds(t time.Time) (time.Time, time.Time) {
	start := t.Truncate(time.Hour)
	end := start.Add(time.Hour - time.Millisecond)
	return start, end
}

func (s *AppointmentService) Create(ctx context.Context, in AppointmentInput) (*model.Appointment, error) {
	if _, err := s.patients.ByID(ctx, in.PatientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, E(CodeNotFound, "Patient not found.")
		}
		return nil, err
	}

	slotStart, slotEnd := slotBounds(in.Date)
	taken, err := s.appointments.InSlot(ctx, slotStart, slotEnd)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, E(CodeConflict, "This time slot is already booked.")
	}

	a := &model.Appointment{
		ID:        uuid.New().String(),
		PatientID: in.PatientID,
		Date:      in.Date,
		Notes:     in.Notes,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// slot index caught a concurrent booking
			return nil, E(CodeConflict, "This time slot is already booked.")
		}
		return nil, err
	}
	s.log.Info("appointment booked", "id", a.ID, "patient", a.PatientID, "slot", slotStart)
	return a, nil
}

func (s *AppointmentService) List(ctx context.Context) ([]model.Appointment, error) {
	return s.appointments.All(ctx)
}

func (s *AppointmentService) ListByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return s.appointments.ByPatient(ctx, patientID)
}

func (s *AppointmentService) Update(ctx context.Context, id string, u store.AppointmentUpdate) (*model.Appointment, error) {
	existing, err := s.appointments.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, E(CodeNotFound, "Appointment not found.")
		}
		return nil, err
	}

	if u.PatientID != nil {
		if _, err := s.patients.ByID(ctx, *u.PatientID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, E(CodeNotFound, "Patient not found.")
			}
			return nil, err
		}
	}

	// moving into a different hour needs the slot check again
	if u.Date != nil {
		newStart, newEnd := slotBounds(*u.Date)
		oldStart, _ := slotBounds(existing.Date)
		if !newStart.Equal(oldStart) {
			taken, err := s.appointments.InSlot(ctx, newStart, newEnd)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, E(CodeConflict, "This time slot is already booked.")
			}
		}
	}

	a, err := s.appointments.Update(ctx, id, u)
	if errors.Is(err, store.ErrConflict) {
		return nil, E(CodeConflict, "This time slot is already booked.")
	}
	return a, err
}

func (s *AppointmentService) Delete(ctx context.Context, id string) error {
	err := s.appointments.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return E(CodeNotFound, "Appointment not found.")
	}
	return err
}
