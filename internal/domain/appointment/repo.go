package appointment

import "context"

type Repository interface {
	// List returns appointments by schedule, soonest first.
	List(ctx context.Context) ([]Appointment, error)
	Get(ctx context.Context, id int64) (*Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
}
