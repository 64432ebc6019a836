package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Storage error codes understood by Classify. The SQLSTATE values come from
// PostgreSQL; PGRST116 is the PostgREST "no rows for single object" code.
const (
	StorageCodeNoRows              = "PGRST116"
	StorageCodeUniqueViolation     = "23505"
	StorageCodeForeignKeyViolation = "23503"
	StorageCodeNotNullViolation    = "23502"
)

// StorageError is a coded failure reported by a storage backend that is not
// a PostgreSQL wire error.
type StorageError struct {
	Code    string
	Message string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error %s: %s", e.Code, e.Message)
}

func (e *StorageError) SQLState() string {
	return e.Code
}

type sqlStater interface {
	SQLState() string
}

// Classify maps any error onto exactly one AppError. A nil error yields an
// Internal error; an error that already carries an AppError is returned as is.
func Classify(err error) *AppError {
	if err == nil {
		return NewInternal("Unknown error occurred", nil)
	}

	if appErr, ok := As(err); ok {
		return appErr
	}

	if code, ok := storageCode(err); ok {
		return classifyCode(code, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFound("Resource", err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewInternal("Storage operation timed out", err)
	}

	return NewInternal("An error occurred", err)
}

func classifyCode(code string, err error) *AppError {
	switch code {
	case StorageCodeNoRows:
		return NewNotFound("Resource", err)
	case StorageCodeUniqueViolation:
		return NewConflict("Resource already exists", CodeDuplicateEntry, err)
	case StorageCodeForeignKeyViolation:
		return NewValidation("Invalid reference", CodeForeignKeyViolation, err)
	case StorageCodeNotNullViolation:
		return NewValidation("Required field is missing", CodeNotNullViolation, err)
	default:
		return NewInternal("Database error occurred", err)
	}
}

func storageCode(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}

	var stater sqlStater
	if errors.As(err, &stater) {
		return stater.SQLState(), true
	}

	return "", false
}

// Constraint returns the violated constraint name for PostgreSQL errors.
func Constraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
