package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/ward/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

const patientCols = `id, mrn, name, date_of_birth, gender, created_at`

const admissionSelect = `SELECT a.id, a.patient_id, a.admission_date, a.discharge_date,
	a.department, a.diagnosis, a.status, a.visit_number, a.safety_type,
	a.shift_type, a.is_weekend, COALESCE(a.admitting_doctor_id, 0), ad.name,
	a.discharge_doctor_id, dd.name, a.discharge_type, a.follow_up_required,
	a.follow_up_date, a.discharge_note
	FROM admissions a
	LEFT JOIN users ad ON ad.id = a.admitting_doctor_id
	LEFT JOIN users dd ON dd.id = a.discharge_doctor_id`

func (r *repoPG) List(ctx context.Context) ([]Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	patients, err := pgx.CollectRows(rows, scanPatient)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	if len(patients) == 0 {
		return patients, nil
	}

	ids := make([]int64, len(patients))
	for i, p := range patients {
		ids[i] = p.ID
	}
	adms, err := r.admissionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range patients {
		patients[i].Admissions = adms[patients[i].ID]
	}
	return patients, nil
}

func (r *repoPG) Get(ctx context.Context, id int64) (*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get patient %d: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPatient)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %d: %w", id, err)
	}
	adms, err := r.admissionsFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	p.Admissions = adms[id]
	return &p, nil
}

func (r *repoPG) admissionsFor(ctx context.Context, patientIDs []int64) (map[int64][]Admission, error) {
	rows, err := r.conn(ctx).Query(ctx,
		admissionSelect+` WHERE a.patient_id = ANY($1) ORDER BY a.admission_date DESC`, patientIDs)
	if err != nil {
		return nil, fmt.Errorf("list admissions: %w", err)
	}
	adms, err := pgx.CollectRows(rows, scanAdmission)
	if err != nil {
		return nil, fmt.Errorf("list admissions: %w", err)
	}
	out := make(map[int64][]Admission, len(patientIDs))
	for _, a := range adms {
		out[a.PatientID] = append(out[a.PatientID], a)
	}
	return out, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (mrn, name, date_of_birth, gender)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		p.MRN, p.Name, p.DateOfBirth, p.Gender,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET mrn = $2, name = $3, date_of_birth = $4, gender = $5
		WHERE id = $1`,
		p.ID, p.MRN, p.Name, p.DateOfBirth, p.Gender,
	)
	if err != nil {
		return fmt.Errorf("update patient %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) CreateAdmission(ctx context.Context, a *Admission) error {
	var doctorID *int64
	if a.AdmittingDoctorID != 0 {
		doctorID = &a.AdmittingDoctorID
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admissions (patient_id, admission_date, department, diagnosis, status,
			visit_number, safety_type, shift_type, is_weekend, admitting_doctor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		a.PatientID, a.AdmissionDate, a.Department, a.Diagnosis, a.Status,
		a.VisitNumber, a.SafetyType, a.ShiftType, a.IsWeekend, doctorID,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert admission: %w", err)
	}
	return nil
}

func (r *repoPG) GetAdmission(ctx context.Context, id int64) (*Admission, error) {
	rows, err := r.conn(ctx).Query(ctx, admissionSelect+` WHERE a.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get admission %d: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAdmission)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAdmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admission %d: %w", id, err)
	}
	return &a, nil
}

func (r *repoPG) UpdateAdmissionStatus(ctx context.Context, id int64, status Status) error {
	// The status guard keeps a concurrent discharge from being overwritten.
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE admissions SET status = $2 WHERE id = $1 AND status = 'active'`, id, status)
	if err != nil {
		return fmt.Errorf("update admission %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func scanPatient(row pgx.CollectableRow) (Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.Name, &p.DateOfBirth, &p.Gender, &p.CreatedAt)
	return p, err
}

func scanAdmission(row pgx.CollectableRow) (Admission, error) {
	var a Admission
	err := row.Scan(
		&a.ID, &a.PatientID, &a.AdmissionDate, &a.DischargeDate,
		&a.Department, &a.Diagnosis, &a.Status, &a.VisitNumber, &a.SafetyType,
		&a.ShiftType, &a.IsWeekend, &a.AdmittingDoctorID, &a.AdmittingDoctorName,
		&a.DischargeDoctorID, &a.DischargeDoctorName, &a.DischargeType, &a.FollowUpRequired,
		&a.FollowUpDate, &a.DischargeNote,
	)
	return a, err
}
