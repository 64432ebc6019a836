package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of client-facing error kinds
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindRedundantDiagnosis
	KindNotFound
	KindUnauthorized
	KindConflict
	// KindRateLimited is produced by the HTTP layer only, never by Classify
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRedundantDiagnosis:
		return "redundant_diagnosis"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Stable machine-readable codes
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeForeignKeyViolation = "FOREIGN_KEY_VIOLATION"
	CodeNotNullViolation    = "NOT_NULL_VIOLATION"
	CodeRedundantDiagnosis  = "REDUNDANT_DIAGNOSIS"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeInternal            = "INTERNAL_ERROR"
	CodeRateLimited         = "RATE_LIMITED"
)

// ExistingDiagnosis is the record a redundant diagnosis collided with
type ExistingDiagnosis struct {
	ID            uuid.UUID `json:"id"`
	DiagnosisName string    `json:"diagnosis_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// AppError represents an application error
type AppError struct {
	Kind              Kind
	Code              string
	Message           string
	Warning           bool
	ExistingDiagnosis *ExistingDiagnosis
	Err               error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind onto its HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindRedundantDiagnosis:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Operational reports whether the error may be described to the client.
// Internal errors never are.
func (e *AppError) Operational() bool {
	return e.Kind != KindInternal
}

// Error constructors
func NewValidation(message, code string, err error) *AppError {
	if code == "" {
		code = CodeValidation
	}
	return &AppError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewRedundantDiagnosis(existing ExistingDiagnosis) *AppError {
	return &AppError{
		Kind:              KindRedundantDiagnosis,
		Code:              CodeRedundantDiagnosis,
		Message:           fmt.Sprintf("patient already has a recorded diagnosis of %s", existing.DiagnosisName),
		Warning:           true,
		ExistingDiagnosis: &existing,
	}
}

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewUnauthorized(message string, err error) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return &AppError{
		Kind:    KindUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
		Err:     err,
	}
}

func NewConflict(message, code string, err error) *AppError {
	if code == "" {
		code = CodeDuplicateEntry
	}
	return &AppError{
		Kind:    KindConflict,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewInternal(message string, err error) *AppError {
	if message == "" {
		message = "Internal server error"
	}
	return &AppError{
		Kind:    KindInternal,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

func NewRateLimited(err error) *AppError {
	return &AppError{
		Kind:    KindRateLimited,
		Code:    CodeRateLimited,
		Message: "Rate limit exceeded",
		Err:     err,
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
