package model

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Patient is immutable once recorded by administrative ingestion
type Patient struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PassportID string    `db:"passport_id" json:"passport_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	BirthDate  Date      `db:"birth_date" json:"birth_date"`
	Gender     Gender    `db:"gender" json:"gender"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
