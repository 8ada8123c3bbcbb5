package model

import "time"

// Personal fields are pointers because anonymization nulls every one of
// them while the row and id stay behind.
type Patient struct {
	ID           string     `json:"id"`
	Name         *string    `json:"name"`
	Email        *string    `json:"email"`
	Phone        *string    `json:"phone"`
	BirthDate    *time.Time `json:"birthDate"`
	Gender       *string    `json:"gender"`
	Height       *float64   `json:"height"`
	Weight       *float64   `json:"weight"`
	IsAnonymized bool       `json:"isAnonymized"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Appointment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	Date      time.Time `json:"date"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID               string
	Email            string
	PasswordHash     string
	CurrentSessionID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
