package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
)

type immunizationRepository struct {
	BaseRepository
}

func NewImmunizationRepository(base BaseRepository) repository.ImmunizationRepository {
	return &immunizationRepository{BaseRepository: base}
}

func (r *immunizationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Immunization, error) {
	query := `
		SELECT id, patient_id, disease_name, vaccinated, date
		FROM immunizations
		WHERE patient_id = $1
		ORDER BY date DESC
	`
	ctx, done := r.query(ctx, "immunization_list")

	immunizations := []*model.Immunization{}
	err := r.db.SelectContext(ctx, &immunizations, query, patientID)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to list immunizations: %w", err)
	}
	return immunizations, nil
}
