package consultation

import "context"

type Repository interface {
	// List returns consultations newest first, optionally narrowed to one status.
	List(ctx context.Context, status Status) ([]Consultation, error)
	Get(ctx context.Context, id int64) (*Consultation, error)
	Create(ctx context.Context, c *Consultation) error
	// SetStatus moves an active consultation to status and reports
	// ErrNotActive when it is no longer active.
	SetStatus(ctx context.Context, id int64, status Status) error
}
