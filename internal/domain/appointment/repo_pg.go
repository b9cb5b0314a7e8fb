package appointment

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

const apptCols = `id, patient_name, medical_number, specialty, scheduled_at, status, appointment_type, created_at`

func (r *repoPG) List(ctx context.Context) ([]Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointments ORDER BY scheduled_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanAppointment)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

func (r *repoPG) Get(ctx context.Context, id int64) (*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAppointment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_name, medical_number, specialty, scheduled_at, status, appointment_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		a.PatientName, a.MedicalNumber, a.Specialty, a.ScheduledAt, a.Status, a.Type,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update appointment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointment(row pgx.CollectableRow) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientName, &a.MedicalNumber, &a.Specialty,
		&a.ScheduledAt, &a.Status, &a.Type, &a.CreatedAt)
	return a, err
}
