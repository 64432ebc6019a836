package model

import (
	"github.com/google/uuid"
)

type Immunization struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DiseaseName string    `db:"disease_name" json:"disease_name"`
	Vaccinated  bool      `db:"vaccinated" json:"vaccinated"`
	Date        Date      `db:"date" json:"date"`
}
