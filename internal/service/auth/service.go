package auth

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
	"github.com/jwalitptl/medhist-api/pkg/auth"
	"github.com/jwalitptl/medhist-api/pkg/errors"
	"github.com/jwalitptl/medhist-api/pkg/security"
)

var ErrInvalidCredentials = stderrors.New("invalid credentials")

// Provider verifies a doctor's credentials
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*model.Doctor, error)
}

type doctorProvider struct {
	doctors repository.DoctorRepository
	hasher  security.PasswordHasher
}

// NewDoctorProvider checks credentials against the doctors table
func NewDoctorProvider(doctors repository.DoctorRepository, hasher security.PasswordHasher) Provider {
	return &doctorProvider{doctors: doctors, hasher: hasher}
}

func (p *doctorProvider) Authenticate(ctx context.Context, email, password string) (*model.Doctor, error) {
	doctor, err := p.doctors.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Classify(err).Kind == errors.KindNotFound {
			p.hasher.CompareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := p.hasher.Compare(doctor.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return doctor, nil
}

type Service struct {
	provider Provider
	jwtSvc   auth.JWTService
	logger   zerolog.Logger
}

func NewService(provider Provider, jwtSvc auth.JWTService, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		jwtSvc:   jwtSvc,
		logger:   logger.With().Str("component", "auth-service").Logger(),
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	doctor, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		if stderrors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn().Str("email", email).Msg("login rejected")
			return nil, errors.NewUnauthorized("Invalid credentials", err)
		}
		s.logger.Error().Err(err).Msg("credential check failed")
		return nil, errors.Classify(err)
	}

	token, err := s.jwtSvc.GenerateAccessToken(doctor.ID, doctor.Email)
	if err != nil {
		return nil, errors.NewInternal("failed to issue token", err)
	}

	return &model.LoginResponse{
		Token: token,
		User:  model.AuthUser{ID: doctor.ID, Email: doctor.Email},
	}, nil
}

// Verify resolves a bearer token to the doctor it was issued for
func (s *Service) Verify(token string) (uuid.UUID, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return uuid.Nil, errors.NewUnauthorized("Invalid or expired token", err)
	}

	doctorID, err := claims.DoctorID()
	if err != nil || doctorID == uuid.Nil {
		return uuid.Nil, errors.NewUnauthorized("Invalid or expired token", err)
	}
	return doctorID, nil
}
