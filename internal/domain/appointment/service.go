package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/ehr/ward/internal/platform/store"
	"github.com/ehr/ward/internal/platform/telemetry"
)

type Service struct {
	repo  Repository
	store *store.Store[Appointment, int64]
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		store: store.New("appointments", func(a Appointment) int64 { return a.ID }),
	}
}

func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.store.SetMetrics(m)
}

func (s *Service) FetchAppointments(ctx context.Context) {
	s.store.Fetch(ctx, s.repo.List)
}

func (s *Service) CreateAppointment(ctx context.Context, in CreateInput) (Appointment, error) {
	if err := in.Validate(); err != nil {
		return Appointment{}, err
	}
	return s.store.Mutate(ctx, "create", func(ctx context.Context) (Appointment, error) {
		a := &Appointment{
			PatientName:   strings.TrimSpace(in.PatientName),
			MedicalNumber: strings.TrimSpace(in.MedicalNumber),
			Specialty:     strings.TrimSpace(in.Specialty),
			ScheduledAt:   in.ScheduledAt,
			Status:        StatusPending,
			Type:          strings.TrimSpace(in.Type),
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return Appointment{}, err
		}
		return *a, nil
	})
}

// UpdateStatus moves an appointment to status. Completed and cancelled
// appointments are final.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (Appointment, error) {
	if !status.Valid() {
		return Appointment{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.store.Mutate(ctx, "update_status", func(ctx context.Context) (Appointment, error) {
		a, err := s.repo.Get(ctx, id)
		if err != nil {
			return Appointment{}, err
		}
		if a.Status.Terminal() && a.Status != status {
			return Appointment{}, fmt.Errorf("%w: %s is final", ErrInvalidStatus, a.Status)
		}
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return Appointment{}, err
		}
		a.Status = status
		return *a, nil
	})
}

func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	return s.store.Remove(ctx, "delete", id, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
}

// Pending returns cached pending appointments, narrowed to a specialty when
// one is given.
func (s *Service) Pending(specialty string) []Appointment {
	var out []Appointment
	for _, a := range s.store.Items() {
		if a.Status != StatusPending {
			continue
		}
		if specialty != "" && !strings.EqualFold(a.Specialty, specialty) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Service) Find(id int64) (Appointment, bool) {
	return s.store.Find(id)
}

func (s *Service) Snapshot() store.State[Appointment] {
	return s.store.Snapshot()
}
