package consultation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ehr/ward/internal/platform/store"
	"github.com/ehr/ward/internal/platform/telemetry"
)

type Service struct {
	repo  Repository
	store *store.Store[Consultation, int64]
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		store: store.New("consultations", func(c Consultation) int64 { return c.ID }),
	}
}

func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.store.SetMetrics(m)
}

func (s *Service) FetchConsultations(ctx context.Context) {
	s.store.Fetch(ctx, func(ctx context.Context) ([]Consultation, error) {
		return s.repo.List(ctx, "")
	})
}

func (s *Service) CreateConsultation(ctx context.Context, in CreateInput) (Consultation, error) {
	if err := in.Validate(); err != nil {
		return Consultation{}, err
	}
	return s.store.Mutate(ctx, "create", func(ctx context.Context) (Consultation, error) {
		c := &Consultation{
			PatientID:   in.PatientID,
			MRN:         strings.TrimSpace(in.MRN),
			PatientName: strings.TrimSpace(in.PatientName),
			Age:         in.Age,
			Gender:      in.Gender,
			Specialty:   strings.TrimSpace(in.Specialty),
			Reason:      strings.TrimSpace(in.Reason),
			DoctorID:    in.DoctorID,
			DoctorName:  in.DoctorName,
			Status:      StatusActive,
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return Consultation{}, err
		}
		return *c, nil
	})
}

// CancelConsultation ends an active consultation without a note.
func (s *Service) CancelConsultation(ctx context.Context, id int64) (Consultation, error) {
	return s.store.Mutate(ctx, "cancel", func(ctx context.Context) (Consultation, error) {
		c, err := s.repo.Get(ctx, id)
		if err != nil {
			return Consultation{}, err
		}
		if c.Status != StatusActive {
			return Consultation{}, fmt.Errorf("%w: status is %s", ErrNotActive, c.Status)
		}
		if err := s.repo.SetStatus(ctx, id, StatusCancelled); err != nil {
			return Consultation{}, err
		}
		c.Status = StatusCancelled
		return *c, nil
	})
}

// Active returns cached active consultations, narrowed to a specialty when
// one is given.
func (s *Service) Active(specialty string) []Consultation {
	var out []Consultation
	for _, c := range s.store.Items() {
		if c.Status != StatusActive {
			continue
		}
		if specialty != "" && !strings.EqualFold(c.Specialty, specialty) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Service) Find(id int64) (Consultation, bool) {
	return s.store.Find(id)
}

func (s *Service) Select(id int64) (Consultation, error) {
	c, ok := s.store.Find(id)
	if !ok {
		return Consultation{}, ErrNotFound
	}
	s.store.SetSelected(&c)
	return c, nil
}

func (s *Service) SetSelected(c *Consultation) {
	s.store.SetSelected(c)
}

func (s *Service) Selected() *Consultation {
	return s.store.Selected()
}

func (s *Service) Snapshot() store.State[Consultation] {
	return s.store.Snapshot()
}
