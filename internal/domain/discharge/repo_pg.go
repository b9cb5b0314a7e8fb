package discharge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
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

func (r *repoPG) ActiveAdmissions(ctx context.Context) ([]AdmissionRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.patient_id, p.mrn, p.name, a.admission_date, a.department,
			a.diagnosis, a.status, COALESCE(a.admitting_doctor_id, 0), u.name,
			a.shift_type, a.is_weekend
		FROM admissions a
		JOIN patients p ON p.id = a.patient_id
		LEFT JOIN users u ON u.id = a.admitting_doctor_id
		WHERE a.status = 'active'
		ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("list active admissions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AdmissionRow, error) {
		var a AdmissionRow
		err := row.Scan(&a.ID, &a.PatientID, &a.MRN, &a.PatientName, &a.AdmissionDate,
			&a.Department, &a.Diagnosis, &a.Status, &a.AdmittingDoctorID, &a.DoctorName,
			&a.ShiftType, &a.IsWeekend)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("list active admissions: %w", err)
	}
	return out, nil
}

func (r *repoPG) ActiveConsultations(ctx context.Context) ([]consultation.Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, mrn, patient_name, created_at, consultation_specialty,
			reason, doctor_id, doctor_name, status
		FROM consultations
		WHERE status = 'active'
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active consultations: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (consultation.Consultation, error) {
		var c consultation.Consultation
		err := row.Scan(&c.ID, &c.PatientID, &c.MRN, &c.PatientName, &c.CreatedAt,
			&c.Specialty, &c.Reason, &c.DoctorID, &c.DoctorName, &c.Status)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list active consultations: %w", err)
	}
	return out, nil
}

func (r *repoPG) DischargeAdmission(ctx context.Context, id int64, d AdmissionDischarge) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE admissions SET
			status = 'discharged',
			discharge_date = $2,
			discharge_type = NULLIF($3, ''),
			follow_up_required = $4,
			follow_up_date = $5,
			discharge_note = $6,
			discharge_doctor_id = $7
		WHERE id = $1 AND status = 'active'`,
		id, d.DischargeDate, d.DischargeType, d.FollowUpRequired, d.FollowUpDate,
		d.DischargeNote, d.DoctorID)
	if err != nil {
		return fmt.Errorf("discharge admission %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("discharge admission %d: %w", id, patient.ErrInvalidTransition)
	}
	return nil
}

func (r *repoPG) CompleteConsultation(ctx context.Context, id int64, c ConsultationCompletion) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE consultations SET
			status = 'completed',
			completion_note = $2,
			completed_by = $3,
			completed_at = $4
		WHERE id = $1 AND status = 'active'`,
		id, c.Note, c.CompletedBy, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("complete consultation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete consultation %d: %w", id, consultation.ErrNotActive)
	}
	return nil
}
