package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("appointment not found")
	ErrInvalidStatus = errors.New("invalid appointment status")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Appointment struct {
	ID            int64     `json:"id"`
	PatientName   string    `json:"patient_name"`
	MedicalNumber string    `json:"medical_number"`
	Specialty     string    `json:"specialty"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Status        Status    `json:"status"`
	Type          string    `json:"appointment_type"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateInput struct {
	PatientName   string    `json:"patient_name"`
	MedicalNumber string    `json:"medical_number"`
	Specialty     string    `json:"specialty"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Type          string    `json:"appointment_type"`
}

func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.PatientName) == "" {
		return fmt.Errorf("patient_name is required")
	}
	if strings.TrimSpace(in.MedicalNumber) == "" {
		return fmt.Errorf("medical_number is required")
	}
	if strings.TrimSpace(in.Specialty) == "" {
		return fmt.Errorf("specialty is required")
	}
	if in.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	if strings.TrimSpace(in.Type) == "" {
		return fmt.Errorf("appointment_type is required")
	}
	return nil
}
