package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
)

const diagnosisColumns = `
	dg.id, dg.patient_id, dg.doctor_id, dg.diagnosis_name, dg.name_key,
	dg.description, dg.one_time, dg.created_at, COALESCE(d.full_name, '') AS doctor_name`

type diagnosisRepository struct {
	BaseRepository
}

func NewDiagnosisRepository(base BaseRepository) repository.DiagnosisRepository {
	return &diagnosisRepository{BaseRepository: base}
}

// Create inserts the row and returns it joined with the doctor's name. The
// partial index diagnoses_one_time_uniq rejects a second one-time row for the
// same patient and name key. The key is computed here, never by SQL lower(),
// so the index agrees with the rule check for every script.
func (r *diagnosisRepository) Create(ctx context.Context, diagnosis *model.Diagnosis) (*model.Diagnosis, error) {
	query := `
		WITH dg AS (
			INSERT INTO diagnoses (
				id, patient_id, doctor_id, diagnosis_name, name_key, description, one_time, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT ` + diagnosisColumns + `
		FROM dg
		LEFT JOIN doctors d ON d.id = dg.doctor_id
	`
	if diagnosis.ID == uuid.Nil {
		diagnosis.ID = uuid.New()
	}
	if diagnosis.CreatedAt.IsZero() {
		diagnosis.CreatedAt = time.Now().UTC()
	}

	ctx, done := r.query(ctx, "diagnosis_create")

	var created model.Diagnosis
	err := r.db.GetContext(ctx, &created, query,
		diagnosis.ID,
		diagnosis.PatientID,
		diagnosis.DoctorID,
		diagnosis.DiagnosisName,
		model.DiagnosisKey(diagnosis.DiagnosisName),
		diagnosis.Description,
		diagnosis.OneTime,
		diagnosis.CreatedAt,
	)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnosis: %w", err)
	}
	return &created, nil
}

func (r *diagnosisRepository) Get(ctx context.Context, patientID, id uuid.UUID) (*model.Diagnosis, error) {
	query := `
		SELECT ` + diagnosisColumns + `
		FROM diagnoses dg
		LEFT JOIN doctors d ON d.id = dg.doctor_id
		WHERE dg.patient_id = $1 AND dg.id = $2
	`
	ctx, done := r.query(ctx, "diagnosis_get")

	var diagnosis model.Diagnosis
	err := r.db.GetContext(ctx, &diagnosis, query, patientID, id)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis: %w", notFound(err, "Diagnosis"))
	}
	return &diagnosis, nil
}

func (r *diagnosisRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error) {
	query := `
		SELECT ` + diagnosisColumns + `
		FROM diagnoses dg
		LEFT JOIN doctors d ON d.id = dg.doctor_id
		WHERE dg.patient_id = $1
		ORDER BY dg.created_at DESC
	`
	ctx, done := r.query(ctx, "diagnosis_list")

	diagnoses := []*model.Diagnosis{}
	err := r.db.SelectContext(ctx, &diagnoses, query, patientID)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}
	return diagnoses, nil
}

func (r *diagnosisRepository) FindByName(ctx context.Context, patientID uuid.UUID, name string) ([]*model.Diagnosis, error) {
	query := `
		SELECT ` + diagnosisColumns + `
		FROM diagnoses dg
		LEFT JOIN doctors d ON d.id = dg.doctor_id
		WHERE dg.patient_id = $1 AND dg.name_key = $2
		ORDER BY dg.created_at ASC
	`
	ctx, done := r.query(ctx, "diagnosis_find_by_name")

	diagnoses := []*model.Diagnosis{}
	err := r.db.SelectContext(ctx, &diagnoses, query, patientID, model.DiagnosisKey(name))
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to find diagnoses by name: %w", err)
	}
	return diagnoses, nil
}
