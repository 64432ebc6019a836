package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
	"github.com/jwalitptl/medhist-api/pkg/errors"
)

type PatientService interface {
	GetByPassport(ctx context.Context, passportID string) (*model.Patient, error)
	ListImmunizations(ctx context.Context, patientID uuid.UUID) ([]*model.Immunization, error)
}

// Service serves the read-only patient lookups. Patients never change once
// recorded, so passport lookups are cached.
type Service struct {
	patients      repository.PatientRepository
	immunizations repository.ImmunizationRepository
	cache         *cache.Cache
	logger        zerolog.Logger
}

func NewService(patients repository.PatientRepository, immunizations repository.ImmunizationRepository, ttl, cleanup time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		patients:      patients,
		immunizations: immunizations,
		cache:         cache.New(ttl, cleanup),
		logger:        logger.With().Str("component", "patient-service").Logger(),
	}
}

func (s *Service) GetByPassport(ctx context.Context, passportID string) (*model.Patient, error) {
	if strings.TrimSpace(passportID) == "" {
		return nil, errors.NewValidation("passport id is required", "", nil)
	}

	key := "passport:" + passportID
	if cached, ok := s.cache.Get(key); ok {
		p := *cached.(*model.Patient)
		return &p, nil
	}

	patient, err := s.patients.GetByPassportID(ctx, passportID)
	if err != nil {
		appErr := errors.Classify(err)
		if appErr.Kind == errors.KindNotFound {
			return nil, errors.NewNotFound("Patient", err)
		}
		s.logger.Error().Err(err).Msg("failed to look up patient")
		return nil, appErr
	}

	stored := *patient
	s.cache.SetDefault(key, &stored)
	return patient, nil
}

func (s *Service) ListImmunizations(ctx context.Context, patientID uuid.UUID) ([]*model.Immunization, error) {
	if patientID == uuid.Nil {
		return nil, errors.NewValidation("patient id is required", "", nil)
	}

	immunizations, err := s.immunizations.ListByPatient(ctx, patientID)
	if err != nil {
		appErr := errors.Classify(err)
		if !appErr.Operational() {
			s.logger.Error().Err(err).Msg("failed to list immunizations")
		}
		return nil, appErr
	}
	return immunizations, nil
}
