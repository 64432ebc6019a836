package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
)

const doctorColumns = `id, full_name, email, role, password_hash`

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{BaseRepository: base}
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	ctx, done := r.query(ctx, "doctor_get")

	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", notFound(err, "Doctor"))
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	ctx, done := r.query(ctx, "doctor_get_by_email")

	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, `SELECT `+doctorColumns+` FROM doctors WHERE lower(email) = lower($1)`, email)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor by email: %w", notFound(err, "Doctor"))
	}
	return &doctor, nil
}
