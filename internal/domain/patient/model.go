package patient

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound              = errors.New("patient not found")
	ErrAdmissionNotFound     = errors.New("admission not found")
	ErrInvalidTransition     = errors.New("invalid admission status transition")
	ErrActiveAdmissionExists = errors.New("patient already has an active admission")
)

// NotAssigned is shown when an admission has no attending staff member.
const NotAssigned = "Not assigned"

type Status string

const (
	StatusActive      Status = "active"
	StatusDischarged  Status = "discharged"
	StatusTransferred Status = "transferred"
)

// CanTransition reports whether an admission may move from one status to
// another. Only active admissions move, and never back to active.
func CanTransition(from, to Status) bool {
	return from == StatusActive && (to == StatusDischarged || to == StatusTransferred)
}

type Shift string

const (
	ShiftMorning        Shift = "morning"
	ShiftEvening        Shift = "evening"
	ShiftNight          Shift = "night"
	ShiftWeekendMorning Shift = "weekend_morning"
	ShiftWeekendNight   Shift = "weekend_night"
)

type Patient struct {
	ID          int64       `json:"id"`
	MRN         string      `json:"mrn"`
	Name        string      `json:"name"`
	DateOfBirth time.Time   `json:"date_of_birth"`
	Gender      string      `json:"gender"`
	CreatedAt   time.Time   `json:"created_at"`
	Admissions  []Admission `json:"admissions"`
}

type Admission struct {
	ID                  int64      `json:"id"`
	PatientID           int64      `json:"patient_id"`
	AdmissionDate       time.Time  `json:"admission_date"`
	DischargeDate       *time.Time `json:"discharge_date,omitempty"`
	Department          string     `json:"department"`
	Diagnosis           string     `json:"diagnosis"`
	Status              Status     `json:"status"`
	VisitNumber         int        `json:"visit_number"`
	SafetyType          *string    `json:"safety_type,omitempty"`
	ShiftType           Shift      `json:"shift_type"`
	IsWeekend           bool       `json:"is_weekend"`
	AdmittingDoctorID   int64      `json:"admitting_doctor_id"`
	AdmittingDoctorName *string    `json:"admitting_doctor_name,omitempty"`
	DischargeDoctorID   *int64     `json:"discharge_doctor_id,omitempty"`
	DischargeDoctorName *string    `json:"discharge_doctor_name,omitempty"`
	DischargeType       *string    `json:"discharge_type,omitempty"`
	FollowUpRequired    bool       `json:"follow_up_required"`
	FollowUpDate        *time.Time `json:"follow_up_date,omitempty"`
	DischargeNote       *string    `json:"discharge_note,omitempty"`
}

// DoctorName is the attending staff member's name, or NotAssigned.
func (a Admission) DoctorName() string {
	if a.AdmittingDoctorName == nil || *a.AdmittingDoctorName == "" {
		return NotAssigned
	}
	return *a.AdmittingDoctorName
}

// SortAdmissions orders admissions newest first.
func SortAdmissions(adms []Admission) {
	sort.SliceStable(adms, func(i, j int) bool {
		return adms[i].AdmissionDate.After(adms[j].AdmissionDate)
	})
}

// CurrentAdmission returns the newest admission.
func (p Patient) CurrentAdmission() (*Admission, bool) {
	if len(p.Admissions) == 0 {
		return nil, false
	}
	a := p.Admissions[0]
	return &a, true
}

func (p Patient) DoctorName() string {
	if a, ok := p.CurrentAdmission(); ok {
		return a.DoctorName()
	}
	return NotAssigned
}

func (p Patient) Department() string {
	if a, ok := p.CurrentAdmission(); ok {
		return a.Department
	}
	return ""
}

func (p Patient) Diagnosis() string {
	if a, ok := p.CurrentAdmission(); ok {
		return a.Diagnosis
	}
	return ""
}

func (p Patient) AdmissionDate() (time.Time, bool) {
	if a, ok := p.CurrentAdmission(); ok {
		return a.AdmissionDate, true
	}
	return time.Time{}, false
}

// HasActiveAdmission reports whether any admission is still active.
func (p Patient) HasActiveAdmission() bool {
	for _, a := range p.Admissions {
		if a.Status == StatusActive {
			return true
		}
	}
	return false
}

// HasActiveAdmissionIn matches departments case-insensitively. An empty
// specialty matches any department.
func (p Patient) HasActiveAdmissionIn(specialty string) bool {
	for _, a := range p.Admissions {
		if a.Status != StatusActive {
			continue
		}
		if specialty == "" || strings.EqualFold(a.Department, specialty) {
			return true
		}
	}
	return false
}

func (p Patient) nextVisitNumber() int {
	n := 0
	for _, a := range p.Admissions {
		if a.VisitNumber > n {
			n = a.VisitNumber
		}
	}
	return n + 1
}

// MarshalJSON adds the fields derived from the current admission.
func (p Patient) MarshalJSON() ([]byte, error) {
	type plain Patient
	out := struct {
		plain
		DoctorName string `json:"doctor_name"`
		Department string `json:"department"`
		Diagnosis  string `json:"diagnosis"`
	}{
		plain:      plain(p),
		DoctorName: p.DoctorName(),
		Department: p.Department(),
		Diagnosis:  p.Diagnosis(),
	}
	if out.Admissions == nil {
		out.Admissions = []Admission{}
	}
	return json.Marshal(out)
}
