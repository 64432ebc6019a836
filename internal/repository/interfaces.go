package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository reads patients; ingestion happens outside this service
	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByPassportID(ctx context.Context, passportID string) (*model.Patient, error)
	}

	// DiagnosisRepository is append-only. Create reports a unique violation
	// (SQLSTATE 23505) when a second one-time row for the same patient and
	// name is inserted.
	DiagnosisRepository interface {
		Create(ctx context.Context, diagnosis *model.Diagnosis) (*model.Diagnosis, error)
		Get(ctx context.Context, patientID, id uuid.UUID) (*model.Diagnosis, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error)
		// FindByName matches diagnosis_name case-insensitively, oldest first
		FindByName(ctx context.Context, patientID uuid.UUID, name string) ([]*model.Diagnosis, error)
	}

	ImmunizationRepository interface {
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Immunization, error)
	}

	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
	}
)
