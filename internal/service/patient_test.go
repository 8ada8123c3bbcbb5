package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clinic-management-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func strPtr(s string) *string { return &s }

func patientInput(name string, email *string) PatientInput {
	return PatientInput{
		Name:      name,
		Email:     email,
		Phone:     "5511999990000",
		BirthDate: time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		Gender:    "female",
		Height:    1.68,
		Weight:    62.5,
	}
}

type PatientServiceSuite struct {
	suite.Suite
	patients *store.MemoryPatientStore
	svc      *PatientService
}

func TestPatientServiceSuite(t *testing.T) {
	suite.Run(t, new(PatientServiceSuite))
}

func (s *PatientServiceSuite) SetupTest() {
	s.patients = store.NewMemoryPatientStore()
	s.svc = NewPatientService(s.patients, testLogger())
}

func (s *PatientServiceSuite) TestCreate() {
	ctx := context.Background()

	p, err := s.svc.Create(ctx, patientInput("Alice Moreira", strPtr("alice@clinic.test")))
	s.NoError(err)
	s.NotEmpty(p.ID)
	s.Equal("Alice Moreira", *p.Name)
	s.False(p.IsAnonymized)
}

func (s *PatientServiceSuite) TestCreateDuplicateEmail() {
	ctx := context.Background()

	_, err := s.svc.Create(ctx, patientInput("Alice Moreira", strPtr("alice@clinic.test")))
	s.Require().NoError(err)

	_, err = s.svc.Create(ctx, patientInput("Another Alice", strPtr("alice@clinic.test")))
	var de *Error
	s.Require().ErrorAs(err, &de)
	s.Equal(CodeConflict, de.Code)
	s.Equal("Patient already exists with this email.", de.Message)
}

func (s *PatientServiceSuite) TestCreateWithoutEmailUnlimited() {
	ctx := context.Background()

	for _, name := range []string{"Ana Silva", "Bruno Costa", "Carla Dias"} {
		_, err := s.svc.Create(ctx, patientInput(name, nil))
		s.NoError(err)
	}

	all, err := s.svc.List(ctx)
	s.NoError(err)
	s.Len(all, 3)
}

func (s *PatientServiceSuite) TestUpdate() {
	ctx := context.Background()

	p, err := s.svc.Create(ctx, patientInput("Alice Moreira", nil))
	s.Require().NoError(err)

	updated, err := s.svc.Update(ctx, p.ID, store.PatientUpdate{Phone: strPtr("5511888880000")})
	s.NoError(err)
	s.Equal("5511888880000", *updated.Phone)
	// untouched fields survive the merge
	s.Equal("Alice Moreira", *updated.Name)
}

func (s *PatientServiceSuite) TestUpdateMissing() {
	_, err := s.svc.Update(context.Background(), "2f1f7a46-1111-4e7e-9b5a-000000000000", store.PatientUpdate{})
	var de *Error
	s.Require().ErrorAs(err, &de)
	s.Equal(CodeNotFound, de.Code)
	s.Equal("Patient not found.", de.Message)
}

func (s *PatientServiceSuite) TestAnonymize() {
	ctx := context.Background()

	p, err := s.svc.Create(ctx, patientInput("Alice Moreira", strPtr("alice@clinic.test")))
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Anonymize(ctx, p.ID))

	got, err := s.svc.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.True(got.IsAnonymized)
	s.Nil(got.Name)
	s.Nil(got.Email)
	s.Nil(got.Phone)
	s.Nil(got.BirthDate)
	s.Nil(got.Gender)
	s.Nil(got.Height)
	s.Nil(got.Weight)
	s.Equal(p.ID, got.ID)
}

func (s *PatientServiceSuite) TestAnonymizeTwiceRejected() {
	ctx := context.Background()

	p, err := s.svc.Create(ctx, patientInput("Alice Moreira", nil))
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Anonymize(ctx, p.ID))

	err = s.svc.Anonymize(ctx, p.ID)
	var de *Error
	s.Require().ErrorAs(err, &de)
	s.Equal(CodeConflict, de.Code)
	s.Equal("Patient is already anonymized.", de.Message)
}

func (s *PatientServiceSuite) TestAnonymizeFreesEmail() {
	ctx := context.Background()

	p, err := s.svc.Create(ctx, patientInput("Alice Moreira", strPtr("alice@clinic.test")))
	s.Require().NoError(err)
	s.Require().NoError(s.svc.Anonymize(ctx, p.ID))

	// uniqueness only binds non-anonymized patients
	_, err = s.svc.Create(ctx, patientInput("New Alice", strPtr("alice@clinic.test")))
	s.NoError(err)
}

func (s *PatientServiceSuite) TestListOrderedByName() {
	ctx := context.Background()

	for _, name := range []string{"Zélia Nunes", "ana Prado", "Érico Braga", "Bruno Costa"} {
		_, err := s.svc.Create(ctx, patientInput(name, nil))
		s.Require().NoError(err)
	}

	all, err := s.svc.List(ctx)
	s.Require().NoError(err)

	names := make([]string, len(all))
	for i, p := range all {
		names[i] = *p.Name
	}
	// locale-aware: case-insensitive, accents fold into their base letter
	s.Equal([]string{"ana Prado", "Bruno Costa", "Érico Braga", "Zélia Nunes"}, names)
}
