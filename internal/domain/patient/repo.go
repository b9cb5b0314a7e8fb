package patient

import "context"

type Repository interface {
	// WithTx runs fn in one database transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// List returns every patient with its admissions, newest patients first.
	List(ctx context.Context) ([]Patient, error)
	Get(ctx context.Context, id int64) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error

	CreateAdmission(ctx context.Context, a *Admission) error
	GetAdmission(ctx context.Context, id int64) (*Admission, error)
	UpdateAdmissionStatus(ctx context.Context, id int64, status Status) error
}
