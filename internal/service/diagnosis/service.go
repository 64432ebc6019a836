package diagnosis

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
	"github.com/jwalitptl/medhist-api/internal/service/rules"
	"github.com/jwalitptl/medhist-api/pkg/errors"
	"github.com/jwalitptl/medhist-api/pkg/metrics"
)

// Publisher fans a persisted diagnosis out to realtime subscribers
type Publisher interface {
	Publish(ctx context.Context, patientID uuid.UUID, d *model.Diagnosis) error
}

type DiagnosisService interface {
	Create(ctx context.Context, input CreateInput) (*model.Diagnosis, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error)
	Get(ctx context.Context, patientID, id uuid.UUID) (*model.Diagnosis, error)
}

type CreateInput struct {
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	DiagnosisName string
	Description   string
}

// Service is the only writer of diagnosis rows
type Service struct {
	repo      repository.DiagnosisRepository
	engine    *rules.Engine
	publisher Publisher
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

func NewService(repo repository.DiagnosisRepository, engine *rules.Engine, publisher Publisher, logger zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		publisher: publisher,
		logger:    logger.With().Str("component", "diagnosis-service").Logger(),
		metrics:   m,
	}
}

// Create records a diagnosis. A one-time disease the patient already has is
// rejected with REDUNDANT_DIAGNOSIS whether the repeat is caught by the rule
// check or by the storage constraint. Every returned error is an AppError.
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Diagnosis, error) {
	if err := validate(input); err != nil {
		return nil, s.reject(err)
	}

	oneTime := s.engine.IsOneTime(input.DiagnosisName)
	if oneTime {
		outcome, err := s.evaluate(ctx, input.PatientID, input.DiagnosisName)
		if err != nil {
			return nil, s.reject(err)
		}
		if outcome.Rejected() {
			return nil, s.reject(errors.NewRedundantDiagnosis(outcome.Existing.Existing()))
		}
	}

	created, err := s.repo.Create(ctx, &model.Diagnosis{
		PatientID:     input.PatientID,
		DoctorID:      input.DoctorID,
		DiagnosisName: input.DiagnosisName,
		Description:   input.Description,
		OneTime:       oneTime,
	})
	if err != nil {
		appErr := errors.Classify(err)
		if oneTime && errors.IsKind(appErr, errors.KindConflict) {
			return nil, s.reject(s.converge(ctx, input, appErr))
		}
		if !appErr.Operational() {
			s.logger.Error().Err(err).Str("patient_id", input.PatientID.String()).Msg("failed to persist diagnosis")
		}
		return nil, s.reject(appErr)
	}

	if s.metrics != nil {
		s.metrics.DiagnosesCreated.Inc()
	}
	s.logger.Info().
		Str("diagnosis_id", created.ID.String()).
		Str("patient_id", created.PatientID.String()).
		Bool("one_time", oneTime).
		Msg("diagnosis recorded")

	// the row is committed; a cancelled request must not suppress the fan-out
	if err := s.publisher.Publish(context.WithoutCancel(ctx), created.PatientID, created); err != nil {
		s.logger.Warn().Err(err).Str("diagnosis_id", created.ID.String()).Msg("diagnosis notification degraded")
	}

	return created, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error) {
	if patientID == uuid.Nil {
		return nil, errors.NewValidation("patient id is required", "", nil)
	}

	diagnoses, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, s.classify(err, "failed to list diagnoses")
	}
	return diagnoses, nil
}

func (s *Service) Get(ctx context.Context, patientID, id uuid.UUID) (*model.Diagnosis, error) {
	if patientID == uuid.Nil || id == uuid.Nil {
		return nil, errors.NewValidation("patient id and diagnosis id are required", "", nil)
	}

	d, err := s.repo.Get(ctx, patientID, id)
	if err != nil {
		return nil, s.classify(err, "failed to get diagnosis")
	}
	return d, nil
}

func (s *Service) evaluate(ctx context.Context, patientID uuid.UUID, name string) (rules.Outcome, error) {
	existing, err := s.repo.FindByName(ctx, patientID, name)
	if err != nil {
		return rules.Outcome{}, s.classify(err, "failed to load existing diagnoses")
	}

	outcome := s.engine.Evaluate(patientID, name, existing)
	if s.metrics != nil {
		s.metrics.RuleEvaluations.WithLabelValues(outcome.Decision.String()).Inc()
	}
	return outcome, nil
}

// converge turns a lost insert race on a one-time disease into the same
// REDUNDANT_DIAGNOSIS error the rule check produces, using the row that won.
func (s *Service) converge(ctx context.Context, input CreateInput, conflict *errors.AppError) error {
	outcome, err := s.evaluate(ctx, input.PatientID, input.DiagnosisName)
	if err != nil {
		return err
	}
	if !outcome.Rejected() {
		s.logger.Error().
			Err(conflict).
			Str("patient_id", input.PatientID.String()).
			Str("constraint", errors.Constraint(conflict)).
			Msg("unique violation without a visible existing diagnosis")
		return conflict
	}

	s.logger.Info().
		Str("patient_id", input.PatientID.String()).
		Str("existing_id", outcome.Existing.ID.String()).
		Msg("concurrent one-time diagnosis resolved by storage constraint")
	return errors.NewRedundantDiagnosis(outcome.Existing.Existing())
}

func (s *Service) classify(err error, msg string) *errors.AppError {
	appErr := errors.Classify(err)
	if !appErr.Operational() {
		s.logger.Error().Err(err).Msg(msg)
	}
	return appErr
}

func (s *Service) reject(err error) error {
	appErr := errors.Classify(err)
	if s.metrics != nil {
		s.metrics.DiagnosesRejected.WithLabelValues(appErr.Code).Inc()
	}
	return appErr
}

func validate(input CreateInput) error {
	switch {
	case input.PatientID == uuid.Nil:
		return errors.NewValidation("patient id is required", "", nil)
	case input.DoctorID == uuid.Nil:
		return errors.NewUnauthorized("authenticated doctor is required", nil)
	case strings.TrimSpace(input.DiagnosisName) == "":
		return errors.NewValidation("diagnosis_name is required", "", nil)
	case strings.TrimSpace(input.Description) == "":
		return errors.NewValidation("description is required", "", nil)
	}
	return nil
}
