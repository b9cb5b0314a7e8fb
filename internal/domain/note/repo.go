package note

import "context"

type Repository interface {
	// ListByPatient returns a patient's notes, newest first.
	ListByPatient(ctx context.Context, patientID int64) ([]Note, error)
	// ListByPatients returns notes of one type for several patients, oldest
	// first. An empty noteType matches every type.
	ListByPatients(ctx context.Context, patientIDs []int64, noteType string) ([]Note, error)
	Create(ctx context.Context, n *Note) error
}
