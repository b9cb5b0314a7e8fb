package discharge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/ward/internal/domain/note"
	"github.com/ehr/ward/internal/platform/auth"
	"github.com/ehr/ward/internal/platform/events"
	"github.com/ehr/ward/internal/platform/store"
	"github.com/ehr/ward/internal/platform/telemetry"
)

// NoteAppender appends clinical notes.
type NoteAppender interface {
	AddNote(ctx context.Context, in note.CreateInput) (note.Note, error)
}

// Session reports the staff member the workflow acts as.
type Session interface {
	CurrentActor(ctx context.Context) (auth.Actor, bool)
}

type Service struct {
	repo    Repository
	notes   NoteAppender
	session Session
	logger  zerolog.Logger
	store   *store.Store[ActivePatient, string]

	emitter    *events.Emitter
	refreshers []func(ctx context.Context)
	now        func() time.Time
}

func NewService(repo Repository, notes NoteAppender, session Session, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		notes:   notes,
		session: session,
		logger:  logger,
		store:   store.New("active_patients", ActivePatient.UnifiedID),
		now:     time.Now,
	}
}

func (s *Service) SetEmitter(e *events.Emitter) {
	s.emitter = e
}

func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.store.SetMetrics(m)
}

// SetRefreshers registers stores to refresh after a successful discharge,
// such as the patient and consultation lists.
func (s *Service) SetRefreshers(fns ...func(ctx context.Context)) {
	s.refreshers = append(s.refreshers, fns...)
}

// FetchActive rebuilds the active-patient list. A failure of either query
// leaves the previous list in place.
func (s *Service) FetchActive(ctx context.Context) {
	s.store.Fetch(ctx, s.loadActive)
}

func (s *Service) loadActive(ctx context.Context) ([]ActivePatient, error) {
	adms, err := s.repo.ActiveAdmissions(ctx)
	if err != nil {
		return nil, err
	}
	cons, err := s.repo.ActiveConsultations(ctx)
	if err != nil {
		return nil, err
	}
	return Merge(adms, cons), nil
}

// SetSelected hands an entry to the discharge workflow. Pass nil to clear.
func (s *Service) SetSelected(p *ActivePatient) {
	s.store.SetSelected(p)
}

// SelectByUnifiedID selects an entry from the cached list.
func (s *Service) SelectByUnifiedID(uid string) (ActivePatient, error) {
	p, ok := s.store.Find(strings.TrimSpace(uid))
	if !ok {
		return ActivePatient{}, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	s.store.SetSelected(&p)
	return p, nil
}

func (s *Service) ClearSelection() {
	s.store.SetSelected(nil)
}

func (s *Service) Selected() *ActivePatient {
	return s.store.Selected()
}

func (s *Service) Snapshot() store.State[ActivePatient] {
	return s.store.Snapshot()
}

// ProcessDischarge discharges the selected admission or completes the
// selected consultation, then appends the matching note. On success the
// list is rebuilt and the selection cleared. On failure the selection is
// kept so the caller can retry; a failed note leaves the primary write
// committed.
func (s *Service) ProcessDischarge(ctx context.Context, data DischargeData) error {
	return s.store.Run(ctx, "discharge", func(ctx context.Context) error {
		sel := s.store.Selected()
		if sel == nil {
			return ErrNoPatientSelected
		}
		actor, ok := s.session.CurrentActor(ctx)
		if !ok {
			return ErrNoUserLoggedIn
		}
		if uid := strings.TrimSpace(data.UnifiedID); uid != "" && uid != sel.UnifiedID() {
			return fmt.Errorf("%w: %s is selected, request is for %s", ErrSelectionChanged, sel.UnifiedID(), uid)
		}
		if err := data.Validate(); err != nil {
			return err
		}

		var err error
		if sel.IsConsultation {
			err = s.completeConsultation(ctx, *sel, actor, data)
		} else {
			err = s.dischargeAdmission(ctx, *sel, actor, data)
		}
		if err != nil {
			return err
		}

		s.store.Fetch(ctx, s.loadActive)
		s.store.SetSelected(nil)
		for _, fn := range s.refreshers {
			fn(ctx)
		}
		return nil
	})
}

func (s *Service) dischargeAdmission(ctx context.Context, p ActivePatient, actor auth.Actor, data DischargeData) error {
	date := data.DischargeDate
	if date.IsZero() {
		date = s.now()
	}
	err := s.repo.DischargeAdmission(ctx, p.ID, AdmissionDischarge{
		DischargeDate:    date,
		DischargeType:    strings.TrimSpace(data.DischargeType),
		FollowUpRequired: data.FollowUpRequired,
		FollowUpDate:     data.FollowUpDate,
		DischargeNote:    strings.TrimSpace(data.DischargeNote),
		DoctorID:         actor.ID,
	})
	if err != nil {
		return err
	}
	if err := s.appendNote(ctx, p, actor, note.TypeDischargeSummary, data.DischargeNote); err != nil {
		return err
	}
	s.emitter.Emit(ctx, events.PatientDischarged, fmt.Sprintf("admission/%d", p.ID), map[string]interface{}{
		"patient_id":         p.PatientID,
		"admission_id":       p.ID,
		"department":         p.Department,
		"discharge_type":     data.DischargeType,
		"follow_up_required": data.FollowUpRequired,
	})
	return nil
}

func (s *Service) completeConsultation(ctx context.Context, p ActivePatient, actor auth.Actor, data DischargeData) error {
	id := p.ID
	if p.ConsultationID != nil {
		id = *p.ConsultationID
	}
	err := s.repo.CompleteConsultation(ctx, id, ConsultationCompletion{
		Note:        strings.TrimSpace(data.DischargeNote),
		CompletedBy: actor.ID,
		CompletedAt: s.now(),
	})
	if err != nil {
		return err
	}
	if err := s.appendNote(ctx, p, actor, note.TypeConsultation, data.DischargeNote); err != nil {
		return err
	}
	s.emitter.Emit(ctx, events.ConsultationCompleted, fmt.Sprintf("consultation/%d", id), map[string]interface{}{
		"patient_id":      p.PatientID,
		"consultation_id": id,
		"specialty":       p.Department,
	})
	return nil
}

func (s *Service) appendNote(ctx context.Context, p ActivePatient, actor auth.Actor, noteType, content string) error {
	_, err := s.notes.AddNote(ctx, note.CreateInput{
		PatientID: p.PatientID,
		DoctorID:  actor.ID,
		NoteType:  noteType,
		Content:   content,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("unified_id", p.UnifiedID()).
			Int64("patient_id", p.PatientID).
			Str("note_type", noteType).
			Msg("note append failed after primary write committed")
		return fmt.Errorf("append %s: %w", strings.ToLower(noteType), err)
	}
	return nil
}
