package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clinic-management-api/internal/model"
)

type pgPatientStore struct {
	pool *pgxpool.Pool
}

const patientCols = `id, name, email, phone, birth_date, gender, height, weight, is_anonymized, created_at, updated_at`

func scanPatient(row pgx.Row) (*model.Patient, error) {
	p := &model.Patient{}
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.BirthDate, &p.Gender,
		&p.Height, &p.Weight, &p.IsAnonymized, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *pgPatientStore) Create(ctx context.Context, p *model.Patient) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO patients (id, name, email, phone, birth_date, gender, height, weight)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Email, p.Phone, p.BirthDate, p.Gender, p.Height, p.Weight,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *pgPatientStore) ByID(ctx context.Context, id string) (*model.Patient, error) {
	return scanPatient(s.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (s *pgPatientStore) ByEmail(ctx context.Context, email string) (*model.Patient, error) {
	return scanPatient(s.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE email = $1`, email))
}

func (s *pgPatientStore) All(ctx context.Context) ([]model.Patient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patients ORDER BY name ASC NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *pgPatientStore) Update(ctx context.Context, id string, u PatientUpdate) (*model.Patient, error) {
	// COALESCE keeps columns the caller did not send
	row := s.pool.QueryRow(ctx,
		`UPDATE patients SET
		   name = COALESCE($2, name),
		   email = COALESCE($3, email),
		   phone = COALESCE($4, phone),
		   birth_date = COALESCE($5, birth_date),
		   gender = COALESCE($6, gender),
		   height = COALESCE($7, height),
		   weight = COALESCE($8, weight),
		   updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+patientCols,
		id, u.Name, u.Email, u.Phone, u.BirthDate, u.Gender, u.Height, u.Weight)
	p, err := scanPatient(row)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	return p, err
}

func (s *pgPatientStore) Anonymize(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE patients SET
		   name = NULL, email = NULL, phone = NULL, birth_date = NULL,
		   gender = NULL, height = NULL, weight = NULL,
		   is_anonymized = TRUE, updated_at = NOW()
		 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
