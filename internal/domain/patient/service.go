package patient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/ward/internal/platform/events"
	"github.com/ehr/ward/internal/platform/store"
	"github.com/ehr/ward/internal/platform/telemetry"
)

// Service is the patient store: patients with their admissions, cached from
// the database, plus the patient handed to other workflows.
type Service struct {
	repo   Repository
	store  *store.Store[Patient, int64]
	shifts *ShiftClassifier
	events *events.Emitter
	now    func() time.Time
}

func NewService(repo Repository, shifts *ShiftClassifier) *Service {
	if shifts == nil {
		shifts = NewShiftClassifier()
	}
	return &Service{
		repo:   repo,
		store:  store.New("patients", func(p Patient) int64 { return p.ID }),
		shifts: shifts,
		now:    time.Now,
	}
}

func (s *Service) SetEmitter(e *events.Emitter) {
	s.events = e
}

func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.store.SetMetrics(m)
}

// FetchPatients reloads the cache. Failures are left in Snapshot().Error.
func (s *Service) FetchPatients(ctx context.Context) {
	s.store.Fetch(ctx, func(ctx context.Context) ([]Patient, error) {
		ps, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		for i := range ps {
			SortAdmissions(ps[i].Admissions)
		}
		return ps, nil
	})
}

// AddPatient creates the patient and its first admission in one transaction.
func (s *Service) AddPatient(ctx context.Context, in NewPatientInput) (Patient, error) {
	if err := in.Validate(); err != nil {
		return Patient{}, err
	}
	dob, _ := parseDOB(in.DateOfBirth)

	p, err := s.store.Mutate(ctx, "add", func(ctx context.Context) (Patient, error) {
		var id int64
		err := s.repo.WithTx(ctx, func(ctx context.Context) error {
			p := &Patient{
				MRN:         strings.TrimSpace(in.MRN),
				Name:        strings.TrimSpace(in.Name),
				DateOfBirth: dob,
				Gender:      strings.ToLower(in.Gender),
			}
			if err := s.repo.Create(ctx, p); err != nil {
				return err
			}
			id = p.ID
			return s.repo.CreateAdmission(ctx, s.newAdmission(p.ID, 1, in.Admission))
		})
		if err != nil {
			return Patient{}, err
		}
		return s.load(ctx, id)
	})
	if err != nil {
		return Patient{}, err
	}
	s.events.Emit(ctx, events.PatientAdmitted, subject(p.ID), map[string]interface{}{
		"mrn":          p.MRN,
		"department":   p.Department(),
		"visit_number": 1,
	})
	return p, nil
}

// AddAdmission readmits an existing patient under the next visit number.
func (s *Service) AddAdmission(ctx context.Context, patientID int64, in AdmissionInput) (Patient, error) {
	if err := in.Validate(); err != nil {
		return Patient{}, err
	}

	var visit int
	p, err := s.store.Mutate(ctx, "admit", func(ctx context.Context) (Patient, error) {
		err := s.repo.WithTx(ctx, func(ctx context.Context) error {
			current, err := s.repo.Get(ctx, patientID)
			if err != nil {
				return err
			}
			if current.HasActiveAdmission() {
				return ErrActiveAdmissionExists
			}
			visit = current.nextVisitNumber()
			return s.repo.CreateAdmission(ctx, s.newAdmission(patientID, visit, in))
		})
		if err != nil {
			return Patient{}, err
		}
		return s.load(ctx, patientID)
	})
	if err != nil {
		return Patient{}, err
	}
	s.events.Emit(ctx, events.PatientAdmitted, subject(patientID), map[string]interface{}{
		"mrn":          p.MRN,
		"department":   p.Department(),
		"visit_number": visit,
	})
	return p, nil
}

// TransferAdmission marks an active admission as transferred.
func (s *Service) TransferAdmission(ctx context.Context, admissionID int64) (Patient, error) {
	return s.store.Mutate(ctx, "transfer", func(ctx context.Context) (Patient, error) {
		a, err := s.repo.GetAdmission(ctx, admissionID)
		if err != nil {
			return Patient{}, err
		}
		if !CanTransition(a.Status, StatusTransferred) {
			return Patient{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, StatusTransferred)
		}
		if err := s.repo.UpdateAdmissionStatus(ctx, admissionID, StatusTransferred); err != nil {
			return Patient{}, err
		}
		return s.load(ctx, a.PatientID)
	})
}

func (s *Service) UpdatePatient(ctx context.Context, id int64, in UpdateInput) (Patient, error) {
	if err := in.Validate(); err != nil {
		return Patient{}, err
	}
	return s.store.Mutate(ctx, "update", func(ctx context.Context) (Patient, error) {
		p, err := s.repo.Get(ctx, id)
		if err != nil {
			return Patient{}, err
		}
		in.apply(p)
		if err := s.repo.Update(ctx, p); err != nil {
			return Patient{}, err
		}
		SortAdmissions(p.Admissions)
		return *p, nil
	})
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	return s.store.Remove(ctx, "delete", id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
}

// GetPatient serves from the cache and falls back to the database.
func (s *Service) GetPatient(ctx context.Context, id int64) (Patient, error) {
	if p, ok := s.store.Find(id); ok {
		return p, nil
	}
	return s.load(ctx, id)
}

// Select hands a cached patient to another workflow.
func (s *Service) Select(id int64) (Patient, error) {
	p, ok := s.store.Find(id)
	if !ok {
		return Patient{}, ErrNotFound
	}
	s.store.SetSelected(&p)
	return p, nil
}

func (s *Service) SetSelected(p *Patient) {
	s.store.SetSelected(p)
}

func (s *Service) Selected() *Patient {
	return s.store.Selected()
}

// Patients returns the cached patients.
func (s *Service) Patients() []Patient {
	return s.store.Items()
}

func (s *Service) Snapshot() store.State[Patient] {
	return s.store.Snapshot()
}

func (s *Service) load(ctx context.Context, id int64) (Patient, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Patient{}, err
	}
	SortAdmissions(p.Admissions)
	return *p, nil
}

func (s *Service) newAdmission(patientID int64, visit int, in AdmissionInput) *Admission {
	at := in.AdmissionDate
	if at.IsZero() {
		at = s.now()
	}
	shift, weekend := s.shifts.Classify(at)
	return &Admission{
		PatientID:         patientID,
		AdmissionDate:     at,
		Department:        strings.TrimSpace(in.Department),
		Diagnosis:         strings.TrimSpace(in.Diagnosis),
		Status:            StatusActive,
		VisitNumber:       visit,
		SafetyType:        in.SafetyType,
		ShiftType:         shift,
		IsWeekend:         weekend,
		AdmittingDoctorID: in.AdmittingDoctorID,
	}
}

func subject(patientID int64) string {
	return "patient/" + strconv.FormatInt(patientID, 10)
}
