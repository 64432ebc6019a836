package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
)

const patientColumns = `id, passport_id, full_name, birth_date, gender, recorded_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{BaseRepository: base}
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	ctx, done := r.query(ctx, "patient_get")

	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", notFound(err, "Patient"))
	}
	return &patient, nil
}

func (r *patientRepository) GetByPassportID(ctx context.Context, passportID string) (*model.Patient, error) {
	ctx, done := r.query(ctx, "patient_get_by_passport")

	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE passport_id = $1`, passportID)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by passport: %w", notFound(err, "Patient"))
	}
	return &patient, nil
}
