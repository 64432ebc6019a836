package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/repository/memory"
	"github.com/jwalitptl/medhist-api/internal/service/patient"
)

func setupRouter(t *testing.T) (*gin.Engine, *model.Patient) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	p := store.AddPatient(&model.Patient{
		PassportID: "AB123456",
		FullName:   "Jane Roe",
		BirthDate:  model.NewDate(1990, time.March, 4),
		Gender:     model.GenderFemale,
	})
	store.AddImmunization(&model.Immunization{PatientID: p.ID, DiseaseName: "measles", Vaccinated: true, Date: model.NewDate(1991, time.May, 1)})

	svc := patient.NewService(store.Patients(), store.Immunizations(), time.Minute, time.Minute, zerolog.Nop())

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group(""))
	return r, p
}

func TestGetPatient(t *testing.T) {
	r, p := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/AB123456", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, p.ID.String(), got["id"])
	assert.Equal(t, "1990-03-04", got["birth_date"])
	assert.Equal(t, "female", got["gender"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/ZZ000000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
}

func TestListImmunizations(t *testing.T) {
	r, p := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/"+p.ID.String()+"/immunizations", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []model.Immunization
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "measles", got[0].DiseaseName)
	assert.True(t, got[0].Vaccinated)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/patients/nope/immunizations", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
