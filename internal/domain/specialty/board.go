// Package specialty serves the per-specialty view of the ward: inpatients
// with an active admission, open consultations and pending appointments.
package specialty

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehr/ward/internal/domain/appointment"
	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
)

const dateLayout = "02/01/2006"

type Board struct {
	Specialty     string                      `json:"specialty"`
	Patients      []patient.Patient           `json:"patients"`
	Consultations []consultation.Consultation `json:"consultations"`
	Appointments  []appointment.Appointment   `json:"appointments"`
}

// ConsultationAsPatient presents a consultation as a patient with a single
// synthetic admission so it can be opened in the patient view. The birth
// date is January 1st of the year the patient turned their recorded age.
func ConsultationAsPatient(c consultation.Consultation, shifts *patient.ShiftClassifier, now time.Time) patient.Patient {
	weekend := shifts.IsWeekend(c.CreatedAt)
	shift := patient.ShiftMorning
	if weekend {
		shift = patient.ShiftWeekendMorning
	}
	var doctorID int64
	if c.DoctorID != nil {
		doctorID = *c.DoctorID
	}
	return patient.Patient{
		ID:          c.ID,
		MRN:         c.MRN,
		Name:        c.PatientName,
		Gender:      c.Gender,
		DateOfBirth: time.Date(now.Year()-c.Age, time.January, 1, 0, 0, 0, 0, now.Location()),
		CreatedAt:   c.CreatedAt,
		Admissions: []patient.Admission{{
			ID:                  c.ID,
			PatientID:           c.PatientID,
			AdmissionDate:       c.CreatedAt,
			Department:          c.Specialty,
			Diagnosis:           c.Reason,
			Status:              patient.StatusActive,
			VisitNumber:         1,
			ShiftType:           shift,
			IsWeekend:           weekend,
			AdmittingDoctorID:   doctorID,
			AdmittingDoctorName: c.DoctorName,
		}},
	}
}

// ShareText is the plain text handed to the share sheet for a patient.
func ShareText(p patient.Patient) string {
	dept, date := "N/A", ""
	if a, ok := p.CurrentAdmission(); ok {
		if a.Department != "" {
			dept = a.Department
		}
		date = a.AdmissionDate.Format(dateLayout)
	}
	return strings.Join([]string{
		"Patient: " + p.Name,
		"MRN: " + p.MRN,
		"Department: " + dept,
		"Doctor: " + p.DoctorName(),
		"Admission Date: " + date,
	}, "\n")
}

func AppointmentShareText(a appointment.Appointment) string {
	return fmt.Sprintf("Appointment for %s\nMRN: %s\nSpecialty: %s\nDate: %s\nType: %s",
		a.PatientName, a.MedicalNumber, a.Specialty, a.ScheduledAt.Format(dateLayout), a.Type)
}
