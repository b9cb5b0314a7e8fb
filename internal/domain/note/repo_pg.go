package note

import (
	"context"
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

const noteSelect = `SELECT n.id, n.patient_id, n.doctor_id, COALESCE(u.name, ''),
	n.note_type, n.content, n.created_at
	FROM medical_notes n
	LEFT JOIN users u ON u.id = n.doctor_id`

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64) ([]Note, error) {
	rows, err := r.conn(ctx).Query(ctx, noteSelect+` WHERE n.patient_id = $1 ORDER BY n.created_at DESC, n.id DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list notes for patient %d: %w", patientID, err)
	}
	out, err := pgx.CollectRows(rows, scanNote)
	if err != nil {
		return nil, fmt.Errorf("list notes for patient %d: %w", patientID, err)
	}
	return out, nil
}

func (r *repoPG) ListByPatients(ctx context.Context, patientIDs []int64, noteType string) ([]Note, error) {
	rows, err := r.conn(ctx).Query(ctx, noteSelect+`
		WHERE n.patient_id = ANY($1) AND ($2 = '' OR n.note_type = $2)
		ORDER BY n.patient_id, n.created_at ASC, n.id ASC`, patientIDs, noteType)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanNote)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

func (r *repoPG) Create(ctx context.Context, n *Note) error {
	err := r.conn(ctx).QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO medical_notes (patient_id, doctor_id, note_type, content)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, doctor_id
		)
		SELECT ins.id, ins.created_at, COALESCE(u.name, '')
		FROM ins LEFT JOIN users u ON u.id = ins.doctor_id`,
		n.PatientID, n.DoctorID, n.NoteType, n.Content,
	).Scan(&n.ID, &n.CreatedAt, &n.DoctorName)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func scanNote(row pgx.CollectableRow) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.PatientID, &n.DoctorID, &n.DoctorName, &n.NoteType, &n.Content, &n.CreatedAt)
	return n, err
}
