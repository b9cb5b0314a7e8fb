package specialty

import (
	"context"
	"errors"

	"github.com/ehr/ward/internal/domain/appointment"
	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
)

var errReadOnly = errors.New("read-only mock")

type patientRepo struct {
	patients []patient.Patient
	err      error
}

func (r *patientRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *patientRepo) List(context.Context) ([]patient.Patient, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.patients, nil
}

func (r *patientRepo) Get(_ context.Context, id int64) (*patient.Patient, error) {
	for _, p := range r.patients {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (r *patientRepo) Create(context.Context, *patient.Patient) error { return errReadOnly }
func (r *patientRepo) Update(context.Context, *patient.Patient) error { return errReadOnly }
func (r *patientRepo) Delete(context.Context, int64) error            { return errReadOnly }

func (r *patientRepo) CreateAdmission(context.Context, *patient.Admission) error { return errReadOnly }

func (r *patientRepo) GetAdmission(context.Context, int64) (*patient.Admission, error) {
	return nil, patient.ErrAdmissionNotFound
}

func (r *patientRepo) UpdateAdmissionStatus(context.Context, int64, patient.Status) error {
	return errReadOnly
}

type consultationRepo struct {
	rows []consultation.Consultation
}

func (r *consultationRepo) List(context.Context, consultation.Status) ([]consultation.Consultation, error) {
	return r.rows, nil
}

func (r *consultationRepo) Get(_ context.Context, id int64) (*consultation.Consultation, error) {
	for _, c := range r.rows {
		if c.ID == id {
			cp := c
			return &cp, nil
		}
	}
	return nil, consultation.ErrNotFound
}

func (r *consultationRepo) Create(context.Context, *consultation.Consultation) error {
	return errReadOnly
}

func (r *consultationRepo) SetStatus(context.Context, int64, consultation.Status) error {
	return errReadOnly
}

type appointmentRepo struct {
	rows []appointment.Appointment
}

func (r *appointmentRepo) List(context.Context) ([]appointment.Appointment, error) {
	return r.rows, nil
}

func (r *appointmentRepo) Get(_ context.Context, id int64) (*appointment.Appointment, error) {
	for _, a := range r.rows {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, appointment.ErrNotFound
}

func (r *appointmentRepo) Create(context.Context, *appointment.Appointment) error { return errReadOnly }

func (r *appointmentRepo) UpdateStatus(context.Context, int64, appointment.Status) error {
	return errReadOnly
}

func (r *appointmentRepo) Delete(context.Context, int64) error { return errReadOnly }

type recordingNavigator struct {
	views  []string
	params []map[string]string
}

func (n *recordingNavigator) Navigate(view string, params map[string]string) {
	n.views = append(n.views, view)
	n.params = append(n.params, params)
}
