package consultation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("consultation not found")
	ErrNotActive = errors.New("consultation is not active")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Consultation is a specialty referral. The patient's identity is copied
// onto the row when it is created.
type Consultation struct {
	ID             int64      `json:"id"`
	PatientID      int64      `json:"patient_id"`
	MRN            string     `json:"mrn"`
	PatientName    string     `json:"patient_name"`
	Age            int        `json:"age"`
	Gender         string     `json:"gender"`
	CreatedAt      time.Time  `json:"created_at"`
	Specialty      string     `json:"consultation_specialty"`
	Reason         string     `json:"reason"`
	DoctorID       *int64     `json:"doctor_id"`
	DoctorName     *string    `json:"doctor_name"`
	Status         Status     `json:"status"`
	CompletionNote *string    `json:"completion_note,omitempty"`
	CompletedBy    *int64     `json:"completed_by,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type CreateInput struct {
	PatientID   int64   `json:"patient_id"`
	MRN         string  `json:"mrn"`
	PatientName string  `json:"patient_name"`
	Age         int     `json:"age"`
	Gender      string  `json:"gender"`
	Specialty   string  `json:"consultation_specialty"`
	Reason      string  `json:"reason"`
	DoctorID    *int64  `json:"doctor_id,omitempty"`
	DoctorName  *string `json:"doctor_name,omitempty"`
}

func (in CreateInput) Validate() error {
	if in.PatientID <= 0 {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(in.MRN) == "" {
		return fmt.Errorf("mrn is required")
	}
	if strings.TrimSpace(in.PatientName) == "" {
		return fmt.Errorf("patient_name is required")
	}
	if in.Age < 0 || in.Age > 150 {
		return fmt.Errorf("age out of range: %d", in.Age)
	}
	if strings.TrimSpace(in.Specialty) == "" {
		return fmt.Errorf("consultation_specialty is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return fmt.Errorf("reason is required")
	}
	if in.DoctorID != nil && *in.DoctorID <= 0 {
		return fmt.Errorf("doctor_id must be positive")
	}
	return nil
}
