package errors

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_StorageCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantStatus int
		wantCode   string
	}{
		{
			name:       "postgrest no rows",
			err:        &StorageError{Code: "PGRST116", Message: "no rows"},
			wantKind:   KindNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
		{
			name:       "unique violation",
			err:        &pq.Error{Code: "23505"},
			wantKind:   KindConflict,
			wantStatus: http.StatusConflict,
			wantCode:   CodeDuplicateEntry,
		},
		{
			name:       "foreign key violation",
			err:        &pq.Error{Code: "23503"},
			wantKind:   KindValidation,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeForeignKeyViolation,
		},
		{
			name:       "not null violation",
			err:        &pq.Error{Code: "23502"},
			wantKind:   KindValidation,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeNotNullViolation,
		},
		{
			name:       "unrecognized code",
			err:        &StorageError{Code: "UNKNOWN", Message: "Test error"},
			wantKind:   KindInternal,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
		{
			name:       "wrapped pq error",
			err:        fmt.Errorf("failed to create diagnosis: %w", &pq.Error{Code: "23505"}),
			wantKind:   KindConflict,
			wantStatus: http.StatusConflict,
			wantCode:   CodeDuplicateEntry,
		},
		{
			name:       "no rows",
			err:        fmt.Errorf("failed to get patient: %w", sql.ErrNoRows),
			wantKind:   KindNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
		{
			name:       "timeout",
			err:        fmt.Errorf("query: %w", context.DeadlineExceeded),
			wantKind:   KindInternal,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("connection reset"),
			wantKind:   KindInternal,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
		{
			name:       "nil",
			err:        nil,
			wantKind:   KindInternal,
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantStatus, got.StatusCode())
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	for _, code := range []string{"PGRST116", "23505", "23503", "23502", "XX000"} {
		first := Classify(&StorageError{Code: code})
		second := Classify(&StorageError{Code: code})
		assert.Equal(t, first.Kind, second.Kind, code)
		assert.Equal(t, first.Code, second.Code, code)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	original := NewRedundantDiagnosis(ExistingDiagnosis{
		ID:            uuid.New(),
		DiagnosisName: "measles",
		CreatedAt:     time.Now(),
	})

	once := Classify(original)
	twice := Classify(once)

	assert.Same(t, original, once)
	assert.Same(t, original, twice)

	wrapped := fmt.Errorf("create: %w", original)
	assert.Same(t, original, Classify(wrapped))
}

func TestAppError_Operational(t *testing.T) {
	assert.True(t, NewNotFound("Patient", nil).Operational())
	assert.True(t, NewValidation("bad", "", nil).Operational())
	assert.False(t, NewInternal("", nil).Operational())
	assert.Equal(t, CodeValidation, NewValidation("bad", "", nil).Code)
	assert.Equal(t, "Unauthorized", NewUnauthorized("", nil).Message)

	limited := NewRateLimited(nil)
	assert.True(t, limited.Operational())
	assert.Equal(t, 429, limited.StatusCode())
	assert.Equal(t, "rate_limited", limited.Kind.String())
}

func TestNewRedundantDiagnosis(t *testing.T) {
	id := uuid.New()
	err := NewRedundantDiagnosis(ExistingDiagnosis{ID: id, DiagnosisName: "measles"})

	assert.Equal(t, http.StatusBadRequest, err.StatusCode())
	assert.Equal(t, CodeRedundantDiagnosis, err.Code)
	assert.True(t, err.Warning)
	require.NotNil(t, err.ExistingDiagnosis)
	assert.Equal(t, id, err.ExistingDiagnosis.ID)
	assert.True(t, IsKind(err, KindRedundantDiagnosis))
}

func TestConstraint(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "diagnoses_one_time_uniq"})
	assert.Equal(t, "diagnoses_one_time_uniq", Constraint(err))
	assert.Equal(t, "", Constraint(fmt.Errorf("other")))
}
