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

type PatientInput struct {
	Name      string
	Email     *string
	Phone     string
	BirthDate time.Time
	Gender    string
	Height    float64
	Weight    float64
}

type PatientService struct {
	patients store.PatientStore
	log      *slog.Logger
}

func NewPatientService(patients store.PatientStore, log *slog.Logger) *PatientService {
	return &PatientService{patients: patients, log: log}
}

func (s *PatientService) Create(ctx context.Context, in PatientInput) (*model.Patient, error) {
	if in.Email != nil {
		if _, err := s.patients.ByEmail(ctx, *in.Email); err == nil {
			return nil, E(CodeConflict, "Patient already exists with this email.")
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	birth := in.BirthDate
	p := &model.Patient{
		ID:        uuid.New().String(),
		Name:      &in.Name,
		Email:     in.Email,
		Phone:     &in.Phone,
		BirthDate: &birth,
		Gender:    &in.Gender,
		Height:    &in.Height,
		Weight:    &in.Weight,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// unique index closed the check/insert race
			return nil, E(CodeConflict, "Patient already exists with this email.")
		}
		return nil, err
	}
	s.log.Info("patient created", "id", p.ID)
	return p, nil
}

func (s *PatientService) Update(ctx context.Context, id string, u store.PatientUpdate) (*model.Patient, error) {
	if _, err := s.patients.ByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, E(CodeNotFound, "Patient not found.")
		}
		return nil, err
	}
	p, err := s.patients.Update(ctx, id, u)
	if errors.Is(err, store.ErrConflict) {
		return nil, E(CodeConflict, "Patient already exists with this email.")
	}
	return p, err
}

// Anonymize is one-way: it nulls the personal fields and flips the flag.
// A second call on the same id is rejected.
func (s *PatientService) Anonymize(ctx context.Context, id string) error {
	p, err := s.patients.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return E(CodeNotFound, "Patient not found.")
		}
		return err
	}
	if p.IsAnonymized {
		return E(CodeConflict, "Patient is already anonymized.")
	}
	if err := s.patients.Anonymize(ctx, id); err != nil {
		return err
	}
	s.log.Info("patient anonymized", "id", id)
	return nil
}

func (s *PatientService) List(ctx context.Context) ([]model.Patient, error) {
	return s.patients.All(ctx)
}

func (s *PatientService) Get(ctx context.Context, id string) (*model.Patient, error) {
	p, err := s.patients.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, E(CodeNotFound, "Patient not found.")
	}
	return p, err
}
