package patient

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var validGenders = map[string]bool{
	"male":   true,
	"female": true,
	"other":  true,
}

// AdmissionInput opens an admission. A zero AdmissionDate means now.
type AdmissionInput struct {
	AdmissionDate     time.Time `json:"admission_date"`
	Department        string    `json:"department"`
	Diagnosis         string    `json:"diagnosis"`
	AdmittingDoctorID int64     `json:"admitting_doctor_id"`
	SafetyType        *string   `json:"safety_type,omitempty"`
}

func (in AdmissionInput) Validate() error {
	if strings.TrimSpace(in.Department) == "" {
		return fmt.Errorf("department is required")
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return fmt.Errorf("diagnosis is required")
	}
	if in.AdmittingDoctorID < 0 {
		return fmt.Errorf("admitting_doctor_id must not be negative")
	}
	return nil
}

type NewPatientInput struct {
	MRN         string         `json:"mrn"`
	Name        string         `json:"name"`
	DateOfBirth string         `json:"date_of_birth"`
	Gender      string         `json:"gender"`
	Admission   AdmissionInput `json:"admission"`
}

func (in NewPatientInput) Validate() error {
	if strings.TrimSpace(in.MRN) == "" {
		return fmt.Errorf("mrn is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := parseDOB(in.DateOfBirth); err != nil {
		return err
	}
	if !validGenders[strings.ToLower(in.Gender)] {
		return fmt.Errorf("invalid gender: %q", in.Gender)
	}
	if err := in.Admission.Validate(); err != nil {
		return fmt.Errorf("admission: %w", err)
	}
	return nil
}

// UpdateInput changes the identity fields that are set.
type UpdateInput struct {
	MRN         *string `json:"mrn,omitempty"`
	Name        *string `json:"name,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	Gender      *string `json:"gender,omitempty"`
}

func (in UpdateInput) Validate() error {
	if in.MRN == nil && in.Name == nil && in.DateOfBirth == nil && in.Gender == nil {
		return fmt.Errorf("no fields to update")
	}
	if in.MRN != nil && strings.TrimSpace(*in.MRN) == "" {
		return fmt.Errorf("mrn must not be empty")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	if in.DateOfBirth != nil {
		if _, err := parseDOB(*in.DateOfBirth); err != nil {
			return err
		}
	}
	if in.Gender != nil && !validGenders[strings.ToLower(*in.Gender)] {
		return fmt.Errorf("invalid gender: %q", *in.Gender)
	}
	return nil
}

func (in UpdateInput) apply(p *Patient) {
	if in.MRN != nil {
		p.MRN = strings.TrimSpace(*in.MRN)
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth, _ = parseDOB(*in.DateOfBirth)
	}
	if in.Gender != nil {
		p.Gender = strings.ToLower(*in.Gender)
	}
}

func parseDOB(s string) (time.Time, error) {
	dob, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date_of_birth must be YYYY-MM-DD: %q", s)
	}
	if dob.After(time.Now()) {
		return time.Time{}, fmt.Errorf("date_of_birth must not be in the future")
	}
	return dob, nil
}
