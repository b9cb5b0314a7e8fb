package patient

import (
	"context"
	"errors"
	"sort"
	"time"
)

type mockRepo struct {
	patients   map[int64]*Patient
	admissions map[int64]*Admission
	doctors    map[int64]string
	nextID     int64
	listErr    error
	createErr  error
	txCalls    int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients:   make(map[int64]*Patient),
		admissions: make(map[int64]*Admission),
		doctors:    map[int64]string{7: "Dr. Hana Salem"},
	}
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txCalls++
	return fn(ctx)
}

func (m *mockRepo) List(ctx context.Context) ([]Patient, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Patient
	for id := range m.patients {
		p, _ := m.Get(ctx, id)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Admissions = nil
	for _, a := range m.admissions {
		if a.PatientID == id {
			adm := *a
			if name, ok := m.doctors[adm.AdmittingDoctorID]; ok {
				adm.AdmittingDoctorName = &name
			}
			cp.Admissions = append(cp.Admissions, adm)
		}
	}
	// unordered, like rows from a join
	sort.Slice(cp.Admissions, func(i, j int) bool { return cp.Admissions[i].ID < cp.Admissions[j].ID })
	return &cp, nil
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	cp.Admissions = nil
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) CreateAdmission(_ context.Context, a *Admission) error {
	if _, ok := m.patients[a.PatientID]; !ok {
		return errors.New("foreign key violation")
	}
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.admissions[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetAdmission(_ context.Context, id int64) (*Admission, error) {
	a, ok := m.admissions[id]
	if !ok {
		return nil, ErrAdmissionNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) UpdateAdmissionStatus(_ context.Context, id int64, status Status) error {
	a, ok := m.admissions[id]
	if !ok || a.Status != StatusActive {
		return ErrInvalidTransition
	}
	a.Status = status
	return nil
}

// seed stores a patient with admissions directly.
func (m *mockRepo) seed(p Patient, adms ...Admission) int64 {
	m.nextID++
	p.ID = m.nextID
	m.patients[p.ID] = &p
	for _, a := range adms {
		m.nextID++
		a.ID = m.nextID
		a.PatientID = p.ID
		cp := a
		m.admissions[a.ID] = &cp
	}
	return p.ID
}
