package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/pkg/errors"
)

// Diagnosis rows are append-only: created by the diagnosis service and never
// updated or deleted.
type Diagnosis struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DoctorName    string    `db:"doctor_name" json:"doctor_name,omitempty"`
	DiagnosisName string    `db:"diagnosis_name" json:"diagnosis_name"`
	Description   string    `db:"description" json:"description"`
	// NameKey is DiagnosisKey(DiagnosisName), written by the repository
	NameKey string `db:"name_key" json:"-"`
	// OneTime marks rows covered by the per-patient uniqueness constraint
	OneTime   bool      `db:"one_time" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DiagnosisKey is the one normalization applied to diagnosis names before
// they are compared, looked up or indexed. Names differing only in letter
// case share a key.
func DiagnosisKey(name string) string {
	return strings.ToLower(name)
}

// Existing is the summary returned to a client whose submission was redundant
func (d *Diagnosis) Existing() errors.ExistingDiagnosis {
	return errors.ExistingDiagnosis{
		ID:            d.ID,
		DiagnosisName: d.DiagnosisName,
		CreatedAt:     d.CreatedAt,
	}
}

type CreateDiagnosisRequest struct {
	DiagnosisName string `json:"diagnosis_name" binding:"required,notblank,max=255"`
	Description   string `json:"description" binding:"required,notblank"`
}
