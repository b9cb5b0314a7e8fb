package specialty

import (
	"context"
	"strconv"
	"time"

	"github.com/ehr/ward/internal/domain/appointment"
	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
	"github.com/ehr/ward/internal/platform/events"
)

// Service reads the patient, consultation and appointment stores. It owns
// no state of its own.
type Service struct {
	patients      *patient.Service
	consultations *consultation.Service
	appointments  *appointment.Service
	shifts        *patient.ShiftClassifier
	nav           events.Navigator
	now           func() time.Time
}

func NewService(p *patient.Service, c *consultation.Service, a *appointment.Service, shifts *patient.ShiftClassifier, nav events.Navigator) *Service {
	if shifts == nil {
		shifts = patient.NewShiftClassifier()
	}
	return &Service{patients: p, consultations: c, appointments: a, shifts: shifts, nav: nav, now: time.Now}
}

// Refresh fetches all three stores and returns the error messages of those
// that failed, keyed by store.
func (s *Service) Refresh(ctx context.Context) map[string]string {
	s.patients.FetchPatients(ctx)
	s.consultations.FetchConsultations(ctx)
	s.appointments.FetchAppointments(ctx)

	errs := make(map[string]string)
	if msg := s.patients.Snapshot().Error; msg != "" {
		errs["patients"] = msg
	}
	if msg := s.consultations.Snapshot().Error; msg != "" {
		errs["consultations"] = msg
	}
	if msg := s.appointments.Snapshot().Error; msg != "" {
		errs["appointments"] = msg
	}
	return errs
}

// Board filters the cached stores. An empty specialty matches every
// specialty.
func (s *Service) Board(specialty string) Board {
	b := Board{
		Specialty:     specialty,
		Patients:      []patient.Patient{},
		Consultations: s.consultations.Active(specialty),
		Appointments:  s.appointments.Pending(specialty),
	}
	for _, p := range s.patients.Patients() {
		if p.HasActiveAdmissionIn(specialty) {
			b.Patients = append(b.Patients, p)
		}
	}
	if b.Consultations == nil {
		b.Consultations = []consultation.Consultation{}
	}
	if b.Appointments == nil {
		b.Appointments = []appointment.Appointment{}
	}
	return b
}

// ViewPatient selects a patient and asks the client to open it.
func (s *Service) ViewPatient(id int64) (patient.Patient, error) {
	p, err := s.patients.Select(id)
	if err != nil {
		return patient.Patient{}, err
	}
	s.navigate(events.ViewPatient, map[string]string{"patient_id": strconv.FormatInt(p.ID, 10)})
	return p, nil
}

// ViewConsultation opens a consultation in the patient view.
func (s *Service) ViewConsultation(id int64) (patient.Patient, error) {
	c, ok := s.consultations.Find(id)
	if !ok {
		return patient.Patient{}, consultation.ErrNotFound
	}
	p := s.ConsultationAsPatient(c)
	s.patients.SetSelected(&p)
	s.navigate(events.ViewPatient, map[string]string{"consultation_id": strconv.FormatInt(c.ID, 10)})
	return p, nil
}

func (s *Service) ViewAppointments() {
	s.navigate(events.ViewAppointments, nil)
}

func (s *Service) ConsultationAsPatient(c consultation.Consultation) patient.Patient {
	return ConsultationAsPatient(c, s.shifts, s.now())
}

func (s *Service) navigate(view string, params map[string]string) {
	if s.nav != nil {
		s.nav.Navigate(view, params)
	}
}
