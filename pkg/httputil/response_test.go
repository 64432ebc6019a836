package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medhist-api/pkg/errors"
)

func TestFormatError_Operational(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := errors.NewRedundantDiagnosis(errors.ExistingDiagnosis{
		ID:            id,
		DiagnosisName: "measles",
		CreatedAt:     created,
	})

	body := FormatError(err)

	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
	assert.Equal(t, errors.CodeRedundantDiagnosis, body.Code)
	assert.True(t, body.Warning)
	require.NotNil(t, body.ExistingDiagnosis)
	assert.Equal(t, id, body.ExistingDiagnosis.ID)
}

func TestFormatError_NonOperational(t *testing.T) {
	cases := []error{
		errors.NewInternal("pq: relation \"diagnoses\" does not exist", nil),
		fmt.Errorf("raw driver failure"),
		nil,
	}

	for _, err := range cases {
		body := FormatError(err)
		assert.Equal(t, ErrorBody{
			Error:      "Internal server error",
			StatusCode: http.StatusInternalServerError,
			Code:       errors.CodeInternal,
		}, body)
	}
}

func TestRespondWithError_OmitsOptionalFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/patients/X", nil)

	RespondWithError(c, errors.NewNotFound("Patient", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, "Patient not found", raw["error"])
	assert.Equal(t, float64(404), raw["statusCode"])
	assert.Equal(t, "NOT_FOUND", raw["code"])
	assert.NotContains(t, raw, "warning")
	assert.NotContains(t, raw, "existing_diagnosis")
}
