package note

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidType = errors.New("invalid note type")

const (
	TypeConsultation     = "Consultation Note"
	TypeDischargeSummary = "Discharge Summary"
	TypeProgress         = "Progress Note"
	TypeLongStay         = "Long Stay Note"
)

func ValidType(t string) bool {
	switch t {
	case TypeConsultation, TypeDischargeSummary, TypeProgress, TypeLongStay:
		return true
	}
	return false
}

// Note is an append-only clinical note. DoctorName is resolved from the
// author's staff record when read back.
type Note struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	DoctorID   int64     `json:"doctor_id"`
	DoctorName string    `json:"doctor_name"`
	NoteType   string    `json:"note_type"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateInput struct {
	PatientID int64  `json:"patient_id"`
	DoctorID  int64  `json:"doctor_id"`
	NoteType  string `json:"note_type"`
	Content   string `json:"content"`
}

func (in CreateInput) Validate() error {
	if in.PatientID <= 0 {
		return fmt.Errorf("patient_id is required")
	}
	if in.DoctorID <= 0 {
		return fmt.Errorf("doctor_id is required")
	}
	if !ValidType(in.NoteType) {
		return fmt.Errorf("%w: %q", ErrInvalidType, in.NoteType)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}
