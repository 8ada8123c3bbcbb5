package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"clinic-management-api/internal/model"
)

// In-memory implementations, used by tests and as a store backend when
// no database is configured. Same contracts as the postgres ones,
// including ErrConflict on unique-email and occupied-slot writes.

type MemoryPatientStore struct {
	mu       sync.RWMutex
	patients map[string]model.Patient
	collator *collate.Collator
	now      func() time.Time
}

func NewMemoryPatientStore() *MemoryPatientStore {
	return &MemoryPatientStore{
		patients: make(map[string]model.Patient),
		collator: collate.New(language.English, collate.Loose),
		now:      time.Now,
	}
}

func (s *MemoryPatientStore) Create(_ context.Context, p *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Email != nil {
		for _, other := range s.patients {
			if other.Email != nil && *other.Email == *p.Email {
				return ErrConflict
			}
		}
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.patients[p.ID] = *p
	return nil
}

func (s *MemoryPatientStore) ByID(_ context.Context, id string) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryPatientStore) ByEmail(_ context.Context, email string) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.Email != nil && *p.Email == email {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryPatientStore) All(_ context.Context) ([]model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	// name ascending, locale-aware; anonymized (nil name) rows sink
	sort.SliceStable(out, func(i, j int) bool {
		switch {
		case out[i].Name == nil:
			return false
		case out[j].Name == nil:
			return true
		default:
			return s.collator.CompareString(*out[i].Name, *out[j].Name) < 0
		}
	})
	return out, nil
}

func (s *MemoryPatientStore) Update(_ context.Context, id string, u PatientUpdate) (*model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Email != nil {
		for otherID, other := range s.patients {
			if otherID != id && other.Email != nil && *other.Email == *u.Email {
				return nil, ErrConflict
			}
		}
		p.Email = u.Email
	}
	if u.Name != nil {
		p.Name = u.Name
	}
	if u.Phone != nil {
		p.Phone = u.Phone
	}
	if u.BirthDate != nil {
		p.BirthDate = u.BirthDate
	}
	if u.Gender != nil {
		p.Gender = u.Gender
	}
	if u.Height != nil {
		p.Height = u.Height
	}
	if u.Weight != nil {
		p.Weight = u.Weight
	}
	p.UpdatedAt = s.now()
	s.patients[id] = p
	return &p, nil
}

func (s *MemoryPatientStore) Anonymize(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.Name, p.Email, p.Phone, p.Gender = nil, nil, nil, nil
	p.BirthDate, p.Height, p.Weight = nil, nil, nil
	p.IsAnonymized = true
	p.UpdatedAt = s.now()
	s.patients[id] = p
	return nil
}

type MemoryAppointmentStore struct {
	mu           sync.RWMutex
	appointments map[string]model.Appointment
	now          func() time.Time
}

func NewMemoryAppointmentStore() *MemoryAppointmentStore {
	return &MemoryAppointmentStore{
		appointments: make(map[string]model.Appointment),
		now:          time.Now,
	}
}

func (s *MemoryAppointmentStore) Create(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hour := a.Date.Truncate(time.Hour)
	for _, other := range s.appointments {
		if other.Date.Truncate(time.Hour).Equal(hour) {
			return ErrConflict
		}
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.appointments[a.ID] = *a
	return nil
}

func (s *MemoryAppointmentStore) ByID(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryAppointmentStore) InSlot(_ context.Context, slotStart, slotEnd time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if !a.Date.Before(slotStart) && !a.Date.After(slotEnd) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryAppointmentStore) All(_ context.Context) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryAppointmentStore) ByPatient(_ context.Context, patientID string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryAppointmentStore) Update(_ context.Context, id string, u AppointmentUpdate) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Date != nil {
		hour := u.Date.Truncate(time.Hour)
		for otherID, other := range s.appointments {
			if otherID != id && other.Date.Truncate(time.Hour).Equal(hour) {
				return nil, ErrConflict
			}
		}
		a.Date = *u.Date
	}
	if u.PatientID != nil {
		a.PatientID = *u.PatientID
	}
	if u.Notes != nil {
		a.Notes = u.Notes
	}
	a.UpdatedAt = s.now()
	s.appointments[id] = a
	return &a, nil
}

func (s *MemoryAppointmentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]model.User)}
}

// Put seeds a user; there is no registration endpoint.
func (s *MemoryUserStore) Put(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryUserStore) ByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) ByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) SetCurrentSession(_ context.Context, id string, sessionID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.CurrentSessionID = sessionID
	s.users[id] = u
	return nil
}
