package consultation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type mockRepo struct {
	rows    map[int64]*Consultation
	nextID  int64
	listErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[int64]*Consultation)}
}

func (m *mockRepo) List(_ context.Context, status Status) ([]Consultation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Consultation
	for _, c := range m.rows {
		if status == "" || c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Consultation, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) Create(_ context.Context, c *Consultation) error {
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockRepo) SetStatus(_ context.Context, id int64, status Status) error {
	c, ok := m.rows[id]
	if !ok || c.Status != StatusActive {
		return ErrNotActive
	}
	c.Status = status
	return nil
}

func validInput() CreateInput {
	return CreateInput{
		PatientID:   1,
		MRN:         "MRN-1",
		PatientName: "Layla Haddad",
		Age:         44,
		Gender:      "female",
		Specialty:   "Cardiology",
		Reason:      "Chest pain",
	}
}

func TestCreateInput_Validate(t *testing.T) {
	if err := validInput().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []func(*CreateInput){
		func(in *CreateInput) { in.PatientID = 0 },
		func(in *CreateInput) { in.MRN = "" },
		func(in *CreateInput) { in.PatientName = " " },
		func(in *CreateInput) { in.Age = -1 },
		func(in *CreateInput) { in.Specialty = "" },
		func(in *CreateInput) { in.Reason = "" },
		func(in *CreateInput) { zero := int64(0); in.DoctorID = &zero },
	}
	for i, mutate := range bad {
		in := validInput()
		mutate(&in)
		if err := in.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestCreateConsultation(t *testing.T) {
	svc := NewService(newMockRepo())

	c, err := svc.CreateConsultation(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID == 0 || c.Status != StatusActive {
		t.Errorf("unexpected consultation: %+v", c)
	}
	if len(svc.Snapshot().Items) != 1 {
		t.Error("expected consultation in cache")
	}
}

func TestCancelConsultation(t *testing.T) {
	svc := NewService(newMockRepo())
	c, _ := svc.CreateConsultation(context.Background(), validInput())

	out, err := svc.CancelConsultation(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", out.Status)
	}
	if cached, _ := svc.Find(c.ID); cached.Status != StatusCancelled {
		t.Errorf("expected cache to be updated, got %s", cached.Status)
	}

	if _, err := svc.CancelConsultation(context.Background(), c.ID); !errors.Is(err, ErrNotActive) {
		t.Errorf("expected ErrNotActive for terminal consultation, got %v", err)
	}
	if _, err := svc.CancelConsultation(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestActive_FiltersStatusAndSpecialty(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	a, _ := svc.CreateConsultation(ctx, validInput())
	neuro := validInput()
	neuro.Specialty = "Neurology"
	svc.CreateConsultation(ctx, neuro)
	b, _ := svc.CreateConsultation(ctx, validInput())
	svc.CancelConsultation(ctx, b.ID)

	got := svc.Active("cardiology")
	if len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("expected only consultation %d, got %+v", a.ID, got)
	}
	if len(svc.Active("")) != 2 {
		t.Errorf("expected 2 active consultations overall, got %d", len(svc.Active("")))
	}
}

func TestFetchConsultations_Failure(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	svc.CreateConsultation(context.Background(), validInput())

	repo.listErr = errors.New("relation does not exist")
	svc.FetchConsultations(context.Background())

	st := svc.Snapshot()
	if st.Error != "relation does not exist" || len(st.Items) != 1 || st.Loading {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestHandler_CancelConsultation_Conflict(t *testing.T) {
	svc := NewService(newMockRepo())
	c, _ := svc.CreateConsultation(context.Background(), validInput())
	svc.CancelConsultation(context.Background(), c.ID)
	h := NewHandler(svc)

	e := echo.New()
	ctx := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")

	err := h.CancelConsultation(ctx)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_CreateConsultation(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	e := echo.New()

	body := `{"patient_id":1,"mrn":"MRN-1","patient_name":"Layla","age":44,"gender":"female",
		"consultation_specialty":"Cardiology","reason":"Chest pain"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateConsultation(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"doctor_id":null`) {
		t.Errorf("expected unassigned doctor, got %s", rec.Body.String())
	}
}

func TestHandler_ListConsultations_StatusFilter(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	svc.CreateConsultation(ctx, validInput())
	c, _ := svc.CreateConsultation(ctx, validInput())
	svc.CancelConsultation(ctx, c.ID)
	h := NewHandler(svc)

	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?status=cancelled", nil)
	if err := h.ListConsultations(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one cancelled consultation: %s", rec.Body.String())
	}
}
