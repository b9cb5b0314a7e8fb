package discharge

import (
	"context"
	"errors"
	"time"

	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/note"
	"github.com/ehr/ward/internal/domain/patient"
	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/internal/platform/events"
)

type mockRepo struct {
	admissions    []AdmissionRow
	consultations []consultation.Consultation

	listErr      error
	dischargeErr error
	writes       int

	discharged map[int64]AdmissionDischarge
	completed  map[int64]ConsultationCompletion
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		discharged: make(map[int64]AdmissionDischarge),
		completed:  make(map[int64]ConsultationCompletion),
	}
}

func (m *mockRepo) ActiveAdmissions(context.Context) ([]AdmissionRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []AdmissionRow
	for _, a := range m.admissions {
		if a.Status == patient.StatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) ActiveConsultations(context.Context) ([]consultation.Consultation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []consultation.Consultation
	for _, c := range m.consultations {
		if c.Status == consultation.StatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockRepo) DischargeAdmission(_ context.Context, id int64, d AdmissionDischarge) error {
	m.writes++
	if m.dischargeErr != nil {
		return m.dischargeErr
	}
	for i := range m.admissions {
		if m.admissions[i].ID == id && m.admissions[i].Status == patient.StatusActive {
			m.admissions[i].Status = patient.StatusDischarged
			m.discharged[id] = d
			return nil
		}
	}
	return patient.ErrInvalidTransition
}

func (m *mockRepo) CompleteConsultation(_ context.Context, id int64, c ConsultationCompletion) error {
	m.writes++
	for i := range m.consultations {
		if m.consultations[i].ID == id && m.consultations[i].Status == consultation.StatusActive {
			m.consultations[i].Status = consultation.StatusCompleted
			m.completed[id] = c
			return nil
		}
	}
	return consultation.ErrNotActive
}

type mockNotes struct {
	added []note.CreateInput
	err   error
}

func (m *mockNotes) AddNote(_ context.Context, in note.CreateInput) (note.Note, error) {
	if m.err != nil {
		return note.Note{}, m.err
	}
	m.added = append(m.added, in)
	return note.Note{ID: int64(len(m.added)), PatientID: in.PatientID, NoteType: in.NoteType}, nil
}

type mockSession struct {
	actor *auth.Actor
}

func (s mockSession) CurrentActor(context.Context) (auth.Actor, bool) {
	if s.actor == nil {
		return auth.Actor{}, false
	}
	return *s.actor, true
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

var errRemote = errors.New("connection reset by peer")

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

var fixedNow = time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)

// seed adds two active admissions (the second without staff) and two active
// consultations (the second unassigned).
func seed(m *mockRepo) {
	m.admissions = []AdmissionRow{
		{ID: 11, PatientID: 1, MRN: "MRN-1", PatientName: "Layla Haddad", AdmissionDate: fixedNow.Add(-72 * time.Hour),
			Department: "Cardiology", Diagnosis: "NSTEMI", Status: patient.StatusActive, AdmittingDoctorID: 7,
			DoctorName: strPtr("Dr. Hana Salem"), ShiftType: patient.ShiftNight},
		{ID: 12, PatientID: 2, MRN: "MRN-2", PatientName: "Yusuf Amin", AdmissionDate: fixedNow.Add(-24 * time.Hour),
			Department: "Neurology", Diagnosis: "Stroke", Status: patient.StatusActive, ShiftType: patient.ShiftWeekendMorning,
			IsWeekend: true},
	}
	m.consultations = []consultation.Consultation{
		{ID: 21, PatientID: 3, MRN: "MRN-3", PatientName: "Mona Fares", CreatedAt: fixedNow.Add(-2 * time.Hour),
			Specialty: "Nephrology", Reason: "AKI", DoctorID: int64Ptr(8), DoctorName: strPtr("Dr. Karim Nasser"),
			Status: consultation.StatusActive},
		{ID: 22, PatientID: 4, MRN: "MRN-4", PatientName: "Sami Odeh", CreatedAt: fixedNow.Add(-time.Hour),
			Specialty: "Cardiology", Reason: "Chest pain", Status: consultation.StatusActive},
	}
}
