package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinic-management-api/internal/model"
)

type pgAppointmentStore struct {
	pool *pgxpool.Pool
}

const appointmentCols = `id, patient_id, date, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := row.Scan(&a.ID, &a.PatientID, &a.Date, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *pgAppointmentStore) Create(ctx context.Context, a *model.Appointment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (id, patient_id, date, notes)
		 VALUES ($1,$2,$3,$4)
		 RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.Date, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		// slot index caught a race between check and insert
		return ErrConflict
	}
	return err
}

func (s *pgAppointmentStore) ByID(ctx context.Context, id string) (*model.Appointment, error) {
	return scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (s *pgAppointmentStore) InSlot(ctx context.Context, slotStart, slotEnd time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM appointments WHERE date >= $1 AND date <= $2
		 )`, slotStart, slotEnd,
	).Scan(&exists)
	return exists, err
}

func (s *pgAppointmentStore) All(ctx context.Context) ([]model.Appointment, error) {
	return s.list(ctx,
		`SELECT `+appointmentCols+` FROM appointments ORDER BY date ASC`)
}

func (s *pgAppointmentStore) ByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return s.list(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE patient_id = $1 ORDER BY date ASC`,
		patientID)
}

func (s *pgAppointmentStore) list(ctx context.Context, q string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *pgAppointmentStore) Update(ctx context.Context, id string, u AppointmentUpdate) (*model.Appointment, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE appointments SET
		   patient_id = COALESCE($2, patient_id),
		   date = COALESCE($3, date),
		   notes = COALESCE($4, notes),
		   updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+appointmentCols,
		id, u.PatientID, u.Date, u.Notes)
	a, err := scanAppointment(row)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	return a, err
}

func (s *pgAppointmentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
