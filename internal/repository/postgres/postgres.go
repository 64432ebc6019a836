package postgres

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medhist-api/internal/repository"
	"github.com/jwalitptl/medhist-api/pkg/metrics"
)

type Repositories struct {
	Patients      repository.PatientRepository
	Diagnoses     repository.DiagnosisRepository
	Immunizations repository.ImmunizationRepository
	Doctors       repository.DoctorRepository
}

// NewRepositories builds every repository over one connection pool
func NewRepositories(db *sqlx.DB, queryTimeout time.Duration, m *metrics.Metrics) *Repositories {
	base := NewBaseRepository(db, queryTimeout, m)
	return &Repositories{
		Patients:      NewPatientRepository(base),
		Diagnoses:     NewDiagnosisRepository(base),
		Immunizations: NewImmunizationRepository(base),
		Doctors:       NewDoctorRepository(base),
	}
}
