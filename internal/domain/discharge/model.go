// Package discharge merges active admissions and active consultations into
// one list of discharge-eligible patients and runs the discharge or
// completion workflow over the selected entry.
package discharge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
)

var (
	ErrNoPatientSelected = errors.New("no patient selected")
	ErrNoUserLoggedIn    = errors.New("no user logged in")
	ErrNotFound          = errors.New("active patient not found")
	ErrInvalidData       = errors.New("invalid discharge data")
	// ErrSelectionChanged means the selection was replaced after the
	// clinician opened the record the request names.
	ErrSelectionChanged = errors.New("selected patient changed")
)

// PendingAssignment is shown for a consultation no doctor has taken yet.
const PendingAssignment = "Pending Assignment"

// ActivePatient is a read-only projection of an active admission or an
// active consultation. For consultations ID and ConsultationID are both the
// consultation id; UnifiedID tells the two kinds apart.
type ActivePatient struct {
	ID                int64          `json:"id"`
	PatientID         int64          `json:"patient_id"`
	MRN               string         `json:"mrn"`
	Name              string         `json:"name"`
	AdmissionDate     time.Time      `json:"admission_date"`
	Department        string         `json:"department"`
	DoctorName        string         `json:"doctor_name"`
	Diagnosis         string         `json:"diagnosis"`
	Status            patient.Status `json:"status"`
	AdmittingDoctorID int64          `json:"admitting_doctor_id"`
	ShiftType         patient.Shift  `json:"shift_type"`
	IsWeekend         bool           `json:"is_weekend"`
	IsConsultation    bool           `json:"is_consultation"`
	ConsultationID    *int64         `json:"consultation_id,omitempty"`
}

// UnifiedID is "a-<admission id>" or "c-<consultation id>".
func (p ActivePatient) UnifiedID() string {
	if p.IsConsultation {
		return "c-" + strconv.FormatInt(p.ID, 10)
	}
	return "a-" + strconv.FormatInt(p.ID, 10)
}

func (p ActivePatient) MarshalJSON() ([]byte, error) {
	type plain ActivePatient
	return json.Marshal(struct {
		plain
		UnifiedID string `json:"unified_id"`
	}{plain(p), p.UnifiedID()})
}

// AdmissionRow is an active admission joined with its patient's identity
// and the attending staff member's name.
type AdmissionRow struct {
	ID                int64
	PatientID         int64
	MRN               string
	PatientName       string
	AdmissionDate     time.Time
	Department        string
	Diagnosis         string
	Status            patient.Status
	AdmittingDoctorID int64
	DoctorName        *string
	ShiftType         patient.Shift
	IsWeekend         bool
}

func FromAdmission(row AdmissionRow) ActivePatient {
	name := patient.NotAssigned
	if row.DoctorName != nil && *row.DoctorName != "" {
		name = *row.DoctorName
	}
	return ActivePatient{
		ID:                row.ID,
		PatientID:         row.PatientID,
		MRN:               row.MRN,
		Name:              row.PatientName,
		AdmissionDate:     row.AdmissionDate,
		Department:        row.Department,
		DoctorName:        name,
		Diagnosis:         row.Diagnosis,
		Status:            row.Status,
		AdmittingDoctorID: row.AdmittingDoctorID,
		ShiftType:         row.ShiftType,
		IsWeekend:         row.IsWeekend,
	}
}

// FromConsultation maps a consultation onto the admission shape. Specialty
// becomes the department and the reason the diagnosis. Consultations carry
// no shift, so they read as weekday morning.
func FromConsultation(c consultation.Consultation) ActivePatient {
	name := PendingAssignment
	if c.DoctorName != nil && *c.DoctorName != "" {
		name = *c.DoctorName
	}
	var doctorID int64
	if c.DoctorID != nil {
		doctorID = *c.DoctorID
	}
	id := c.ID
	return ActivePatient{
		ID:                c.ID,
		PatientID:         c.PatientID,
		MRN:               c.MRN,
		Name:              c.PatientName,
		AdmissionDate:     c.CreatedAt,
		Department:        c.Specialty,
		DoctorName:        name,
		Diagnosis:         c.Reason,
		Status:            patient.StatusActive,
		AdmittingDoctorID: doctorID,
		ShiftType:         patient.ShiftMorning,
		IsConsultation:    true,
		ConsultationID:    &id,
	}
}

// Merge lists admissions first, then consultations, each in source order.
func Merge(admissions []AdmissionRow, consultations []consultation.Consultation) []ActivePatient {
	out := make([]ActivePatient, 0, len(admissions)+len(consultations))
	for _, a := range admissions {
		out = append(out, FromAdmission(a))
	}
	for _, c := range consultations {
		out = append(out, FromConsultation(c))
	}
	return out
}

// DischargeData is the clinician's input for discharging an admission or
// completing a consultation. DischargeNote doubles as the completion note.
// UnifiedID names the record the clinician is looking at; when set it must
// match the current selection.
type DischargeData struct {
	UnifiedID        string     `json:"unified_id"`
	DischargeDate    time.Time  `json:"discharge_date"`
	DischargeType    string     `json:"discharge_type"`
	FollowUpRequired bool       `json:"follow_up_required"`
	FollowUpDate     *time.Time `json:"follow_up_date,omitempty"`
	DischargeNote    string     `json:"discharge_note"`
}

func (d DischargeData) Validate() error {
	if strings.TrimSpace(d.DischargeNote) == "" {
		return fmt.Errorf("%w: discharge_note is required", ErrInvalidData)
	}
	if d.FollowUpRequired && d.FollowUpDate == nil {
		return fmt.Errorf("%w: follow_up_date is required when follow-up is required", ErrInvalidData)
	}
	if !d.FollowUpRequired && d.FollowUpDate != nil {
		return fmt.Errorf("%w: follow_up_date given without follow_up_required", ErrInvalidData)
	}
	return nil
}

// AdmissionDischarge is what DischargeAdmission stamps on the row.
type AdmissionDischarge struct {
	DischargeDate    time.Time
	DischargeType    string
	FollowUpRequired bool
	FollowUpDate     *time.Time
	DischargeNote    string
	DoctorID         int64
}

type ConsultationCompletion struct {
	Note        string
	CompletedBy int64
	CompletedAt time.Time
}
