package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medhist-api/pkg/errors"
)

// ErrorBody is the shape of every non-2xx response
type ErrorBody struct {
	Error             string                    `json:"error"`
	StatusCode        int                       `json:"statusCode"`
	Code              string                    `json:"code"`
	Warning           bool                      `json:"warning,omitempty"`
	ExistingDiagnosis *errors.ExistingDiagnosis `json:"existing_diagnosis,omitempty"`
}

var internalBody = ErrorBody{
	Error:      "Internal server error",
	StatusCode: http.StatusInternalServerError,
	Code:       errors.CodeInternal,
}

// FormatError renders err for the client. Anything that is not an operational
// AppError collapses to the generic internal body.
func FormatError(err error) ErrorBody {
	appErr, ok := errors.As(err)
	if !ok || !appErr.Operational() {
		return internalBody
	}

	body := ErrorBody{
		Error:      appErr.Message,
		StatusCode: appErr.StatusCode(),
		Code:       appErr.Code,
	}
	if appErr.Warning {
		body.Warning = true
	}
	if appErr.ExistingDiagnosis != nil {
		body.ExistingDiagnosis = appErr.ExistingDiagnosis
	}
	return body
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondWithError sends an error response and aborts the chain
func RespondWithError(c *gin.Context, err error) {
	body := FormatError(err)

	if body.StatusCode >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(body.StatusCode, body)
}
