package note

import (
	"context"
	"strings"

	"github.com/ehr/ward/internal/platform/store"
	"github.com/ehr/ward/internal/platform/telemetry"
)

// Service caches the notes of the patient last fetched. Notes are never
// edited or deleted here.
type Service struct {
	repo  Repository
	store *store.Store[Note, int64]
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		store: store.New("notes", func(n Note) int64 { return n.ID }),
	}
}

func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.store.SetMetrics(m)
}

// FetchNotes replaces the cache with one patient's notes.
func (s *Service) FetchNotes(ctx context.Context, patientID int64) {
	s.store.Fetch(ctx, func(ctx context.Context) ([]Note, error) {
		return s.repo.ListByPatient(ctx, patientID)
	})
}

// AddNote appends a note and returns the stored row.
func (s *Service) AddNote(ctx context.Context, in CreateInput) (Note, error) {
	if err := in.Validate(); err != nil {
		return Note{}, err
	}
	return s.store.Mutate(ctx, "add", func(ctx context.Context) (Note, error) {
		n := &Note{
			PatientID: in.PatientID,
			DoctorID:  in.DoctorID,
			NoteType:  in.NoteType,
			Content:   strings.TrimSpace(in.Content),
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return Note{}, err
		}
		return *n, nil
	})
}

// ByPatient loads notes of one type for the given patients, grouped by
// patient id. It reads straight from the repository and leaves the cache
// alone.
func (s *Service) ByPatient(ctx context.Context, patientIDs []int64, noteType string) (map[int64][]Note, error) {
	out := make(map[int64][]Note)
	if len(patientIDs) == 0 {
		return out, nil
	}
	notes, err := s.repo.ListByPatients(ctx, patientIDs, noteType)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		out[n.PatientID] = append(out[n.PatientID], n)
	}
	return out, nil
}

func (s *Service) Snapshot() store.State[Note] {
	return s.store.Snapshot()
}
