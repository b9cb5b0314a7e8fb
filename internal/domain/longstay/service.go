// Package longstay selects patients whose current admission has run past
// the ward's long-stay threshold and exports them as a PDF report.
package longstay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/ward/internal/domain/note"
	"github.com/ehr/ward/internal/domain/patient"
	"github.com/ehr/ward/internal/platform/blobstore"
	"github.com/ehr/ward/internal/platform/events"
	"github.com/ehr/ward/internal/platform/report"
)

// ArchivePrefix is the key prefix exported reports are stored under.
const ArchivePrefix = "reports/"

var ErrNoData = errors.New("patient list unavailable")

// NoteSource loads notes of one type for several patients.
type NoteSource interface {
	ByPatient(ctx context.Context, patientIDs []int64, noteType string) (map[int64][]note.Note, error)
}

// Filter narrows the selection. Zero values match everything; From and To
// are inclusive calendar days.
type Filter struct {
	Specialty string
	DoctorID  int64
	From      *time.Time
	To        *time.Time
}

type Export struct {
	FileName string
	Data     []byte
	Patients int
	// Stale is set when the patient refresh failed and the cached list was
	// used instead.
	Stale  bool
	Object *blobstore.Object
}

type Service struct {
	patients *patient.Service
	notes    NoteSource
	renderer report.Renderer
	minDays  int
	logger   zerolog.Logger

	archive blobstore.Archive
	emitter *events.Emitter
	now     func() time.Time
}

func NewService(patients *patient.Service, notes NoteSource, renderer report.Renderer, minDays int, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		notes:    notes,
		renderer: renderer,
		minDays:  minDays,
		logger:   logger,
		archive:  blobstore.Discard{},
		now:      time.Now,
	}
}

func (s *Service) SetArchive(a blobstore.Archive) {
	if a != nil {
		s.archive = a
	}
}

func (s *Service) SetEmitter(e *events.Emitter) {
	s.emitter = e
}

// Select returns cached patients whose current admission is active and has
// lasted at least the threshold, longest stay first.
func (s *Service) Select(f Filter) []patient.Patient {
	now := s.now()
	var out []patient.Patient
	for _, p := range s.patients.Patients() {
		a, ok := p.CurrentAdmission()
		if !ok || a.Status != patient.StatusActive {
			continue
		}
		if report.StayDays(now, a.AdmissionDate) < s.minDays {
			continue
		}
		if f.Specialty != "" && !strings.EqualFold(a.Department, f.Specialty) {
			continue
		}
		if f.DoctorID != 0 && a.AdmittingDoctorID != f.DoctorID {
			continue
		}
		if f.From != nil && a.AdmissionDate.Before(startOfDay(*f.From)) {
			continue
		}
		if f.To != nil && !a.AdmissionDate.Before(startOfDay(*f.To).AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, _ := out[i].AdmissionDate()
		aj, _ := out[j].AdmissionDate()
		return ai.Before(aj)
	})
	return out
}

// Export refreshes the patient list, renders the report and archives it.
// Archiving is best effort.
func (s *Service) Export(ctx context.Context, f Filter) (*Export, error) {
	s.patients.FetchPatients(ctx)
	st := s.patients.Snapshot()
	if st.Error != "" && len(st.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, st.Error)
	}

	now := s.now()
	selected := s.Select(f)
	entries := make([]report.Entry, 0, len(selected))
	ids := make([]int64, 0, len(selected))
	for _, p := range selected {
		a, _ := p.CurrentAdmission()
		entries = append(entries, report.Entry{
			PatientID:     p.ID,
			Name:          p.Name,
			MRN:           p.MRN,
			Department:    a.Department,
			Doctor:        a.DoctorName(),
			AdmissionDate: a.AdmissionDate,
		})
		ids = append(ids, p.ID)
	}

	byPatient, err := s.notes.ByPatient(ctx, ids, note.TypeLongStay)
	if err != nil {
		return nil, fmt.Errorf("load long stay notes: %w", err)
	}
	lookup := func(id int64) []report.Note {
		ns := byPatient[id]
		out := make([]report.Note, len(ns))
		for i, n := range ns {
			out[i] = report.Note{CreatedAt: n.CreatedAt, Author: n.DoctorName, Content: n.Content}
		}
		return out
	}

	opts := report.Options{Specialty: f.Specialty, DoctorID: f.DoctorID, From: f.From, To: f.To}
	doc := report.Layout(entries, opts, lookup, s.renderer, now)
	var buf bytes.Buffer
	if err := s.renderer.Render(doc, &buf); err != nil {
		return nil, err
	}

	exp := &Export{
		FileName: report.FileName(now),
		Data:     buf.Bytes(),
		Patients: len(entries),
		Stale:    st.Error != "",
	}

	obj, err := s.archive.Put(ctx, ArchivePrefix+exp.FileName, "application/pdf", exp.Data, map[string]string{
		"specialty": f.Specialty,
		"patients":  strconv.Itoa(exp.Patients),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("file", exp.FileName).Msg("archive long stay report")
	} else {
		exp.Object = &obj
	}

	s.emitter.Emit(ctx, events.ReportExported, "report/"+exp.FileName, map[string]interface{}{
		"patients":  exp.Patients,
		"specialty": f.Specialty,
		"stale":     exp.Stale,
	})
	return exp, nil
}

// Archived lists previously exported reports.
func (s *Service) Archived(ctx context.Context) ([]blobstore.Object, error) {
	return s.archive.List(ctx, ArchivePrefix)
}

func (s *Service) Download(ctx context.Context, fileName string) (blobstore.Object, []byte, error) {
	if fileName == "" || strings.ContainsAny(fileName, "/\\") {
		return blobstore.Object{}, nil, blobstore.ErrNotFound
	}
	return s.archive.Get(ctx, ArchivePrefix+fileName)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
