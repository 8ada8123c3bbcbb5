package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the postgres-backed implementations over one pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Patients() PatientStore         { return &pgPatientStore{pool: s.pool} }
func (s *Store) Appointments() AppointmentStore { return &pgAppointmentStore{pool: s.pool} }
func (s *Store) Users() UserStore               { return &pgUserStore{pool: s.pool} }

// 23505 = unique_violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
