// Package memory holds in-process repository implementations with the same
// constraints as the SQL schema, used by service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository"
	apperrors "github.com/jwalitptl/medhist-api/pkg/errors"
)

// OneTimeConstraint is the name of the partial unique index on diagnoses
const OneTimeConstraint = "diagnoses_one_time_uniq"

// Store keeps every table in one place so foreign keys can be checked
type Store struct {
	mu            sync.RWMutex
	patients      map[uuid.UUID]*model.Patient
	doctors       map[uuid.UUID]*model.Doctor
	diagnoses     []*model.Diagnosis
	immunizations []*model.Immunization
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		patients: make(map[uuid.UUID]*model.Patient),
		doctors:  make(map[uuid.UUID]*model.Doctor),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) AddPatient(p *model.Patient) *model.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = s.now()
	}
	s.patients[p.ID] = p
	return p
}

func (s *Store) AddDoctor(d *model.Doctor) *model.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.doctors[d.ID] = d
	return d
}

func (s *Store) AddImmunization(i *model.Immunization) *model.Immunization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	s.immunizations = append(s.immunizations, i)
	return i
}

// DiagnosisCount reports how many diagnosis rows exist for patientID
func (s *Store) DiagnosisCount(patientID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.diagnoses {
		if d.PatientID == patientID {
			n++
		}
	}
	return n
}

func (s *Store) Patients() repository.PatientRepository {
	return &patientRepository{store: s}
}

func (s *Store) Diagnoses() repository.DiagnosisRepository {
	return &diagnosisRepository{store: s}
}

func (s *Store) Immunizations() repository.ImmunizationRepository {
	return &immunizationRepository{store: s}
}

func (s *Store) Doctors() repository.DoctorRepository {
	return &doctorRepository{store: s}
}

type patientRepository struct {
	store *Store
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.patients[id]
	if !ok {
		return nil, apperrors.NewNotFound("Patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *patientRepository) GetByPassportID(ctx context.Context, passportID string) (*model.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.patients {
		if p.PassportID == passportID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("Patient", nil)
}

type diagnosisRepository struct {
	store *Store
}

// Create mirrors the SQL constraints: patient and doctor must exist, and a
// second one-time row for the same patient and lower-cased name fails with
// SQLSTATE 23505.
func (r *diagnosisRepository) Create(ctx context.Context, diagnosis *model.Diagnosis) (*model.Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to create diagnosis: %w", err)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[diagnosis.PatientID]; !ok {
		return nil, fmt.Errorf("failed to create diagnosis: %w", &pq.Error{
			Code:       "23503",
			Message:    "insert or update on table \"diagnoses\" violates foreign key constraint",
			Constraint: "diagnoses_patient_id_fkey",
		})
	}
	doctor, ok := s.doctors[diagnosis.DoctorID]
	if !ok {
		return nil, fmt.Errorf("failed to create diagnosis: %w", &pq.Error{
			Code:       "23503",
			Message:    "insert or update on table \"diagnoses\" violates foreign key constraint",
			Constraint: "diagnoses_doctor_id_fkey",
		})
	}

	key := model.DiagnosisKey(diagnosis.DiagnosisName)
	if diagnosis.OneTime {
		for _, d := range s.diagnoses {
			if d.OneTime && d.PatientID == diagnosis.PatientID && d.NameKey == key {
				return nil, fmt.Errorf("failed to create diagnosis: %w", &pq.Error{
					Code:       "23505",
					Message:    "duplicate key value violates unique constraint \"" + OneTimeConstraint + "\"",
					Constraint: OneTimeConstraint,
				})
			}
		}
	}

	row := *diagnosis
	row.NameKey = key
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	row.DoctorName = doctor.FullName
	s.diagnoses = append(s.diagnoses, &row)

	out := row
	return &out, nil
}

func (r *diagnosisRepository) Get(ctx context.Context, patientID, id uuid.UUID) (*model.Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, d := range r.store.diagnoses {
		if d.ID == id && d.PatientID == patientID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("Diagnosis", nil)
}

func (r *diagnosisRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error) {
	return r.filter(ctx, func(d *model.Diagnosis) bool {
		return d.PatientID == patientID
	}, true)
}

func (r *diagnosisRepository) FindByName(ctx context.Context, patientID uuid.UUID, name string) ([]*model.Diagnosis, error) {
	key := model.DiagnosisKey(name)
	return r.filter(ctx, func(d *model.Diagnosis) bool {
		return d.PatientID == patientID && d.NameKey == key
	}, false)
}

func (r *diagnosisRepository) filter(ctx context.Context, keep func(*model.Diagnosis) bool, newestFirst bool) ([]*model.Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := []*model.Diagnosis{}
	for _, d := range r.store.diagnoses {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	// rows are appended in insertion order, so a stable sort keeps ties in that order
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type immunizationRepository struct {
	store *Store
}

func (r *immunizationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Immunization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := []*model.Immunization{}
	for _, i := range r.store.immunizations {
		if i.PatientID == patientID {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Date.After(out[b].Date.Time)
	})
	return out, nil
}

type doctorRepository struct {
	store *Store
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	d, ok := r.store.doctors[id]
	if !ok {
		return nil, apperrors.NewNotFound("Doctor", nil)
	}
	cp := *d
	return &cp, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, d := range r.store.doctors {
		if strings.EqualFold(d.Email, email) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("Doctor", nil)
}
