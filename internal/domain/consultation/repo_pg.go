package consultation

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

const consultationCols = `c.id, c.patient_id, c.mrn, c.patient_name, c.age, c.gender, c.created_at,
	c.consultation_specialty, c.reason, c.doctor_id, COALESCE(c.doctor_name, u.name), c.status,
	c.completion_note, c.completed_by, c.completed_at`

const consultationFrom = ` FROM consultations c LEFT JOIN users u ON u.id = c.doctor_id`

func (r *repoPG) List(ctx context.Context, status Status) ([]Consultation, error) {
	q := `SELECT ` + consultationCols + consultationFrom
	var args []interface{}
	if status != "" {
		q += ` WHERE c.status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanConsultation)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	return out, nil
}

func (r *repoPG) Get(ctx context.Context, id int64) (*Consultation, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+consultationCols+consultationFrom+` WHERE c.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get consultation %d: %w", id, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanConsultation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get consultation %d: %w", id, err)
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Consultation) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO consultations (patient_id, mrn, patient_name, age, gender,
			consultation_specialty, reason, doctor_id, doctor_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`,
		c.PatientID, c.MRN, c.PatientName, c.Age, c.Gender,
		c.Specialty, c.Reason, c.DoctorID, c.DoctorName, c.Status,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE consultations SET status = $2 WHERE id = $1 AND status = 'active'`, id, status)
	if err != nil {
		return fmt.Errorf("update consultation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotActive
	}
	return nil
}

func scanConsultation(row pgx.CollectableRow) (Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.PatientID, &c.MRN, &c.PatientName, &c.Age, &c.Gender, &c.CreatedAt,
		&c.Specialty, &c.Reason, &c.DoctorID, &c.DoctorName, &c.Status,
		&c.CompletionNote, &c.CompletedBy, &c.CompletedAt,
	)
	return c, err
}
