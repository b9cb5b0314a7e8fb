package discharge

import (
	"context"

	"github.com/ehr/ward/internal/domain/consultation"
)

type Repository interface {
	// ActiveAdmissions returns active admissions in the order the data
	// service yields them.
	ActiveAdmissions(ctx context.Context) ([]AdmissionRow, error)
	// ActiveConsultations returns active consultations with their embedded
	// patient identity; doctor names are not resolved through staff records.
	ActiveConsultations(ctx context.Context) ([]consultation.Consultation, error)

	DischargeAdmission(ctx context.Context, id int64, d AdmissionDischarge) error
	CompleteConsultation(ctx context.Context, id int64, c ConsultationCompletion) error
}
