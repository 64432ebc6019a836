package diagnosis

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medhist-api/internal/middleware"
	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/internal/realtime"
	"github.com/jwalitptl/medhist-api/internal/repository/memory"
	"github.com/jwalitptl/medhist-api/internal/service/diagnosis"
	"github.com/jwalitptl/medhist-api/internal/service/rules"
	"github.com/jwalitptl/medhist-api/pkg/metrics"
	"github.com/jwalitptl/medhist-api/pkg/validator"
)

type testEnv struct {
	router  *gin.Engine
	store   *memory.Store
	hub     *realtime.Hub
	patient *model.Patient
	other   *model.Patient
	doctor  *model.Doctor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	store := memory.NewStore()
	env := &testEnv{
		store:   store,
		patient: store.AddPatient(&model.Patient{PassportID: "P-100", FullName: "Jane Roe", Gender: model.GenderFemale}),
		other:   store.AddPatient(&model.Patient{PassportID: "Q-200", FullName: "John Doe", Gender: model.GenderMale}),
		doctor:  store.AddDoctor(&model.Doctor{FullName: "Dr. Grey", Email: "grey@example.com"}),
	}

	set, err := rules.NewDiseaseSet("1", []string{"measles", "mumps", "chickenpox"})
	require.NoError(t, err)

	m := metrics.NewNop()
	env.hub = realtime.NewHub(8, zerolog.Nop(), m)
	notifier := realtime.NewNotifier(env.hub, zerolog.Nop(), m)
	service := diagnosis.NewService(store.Diagnoses(), rules.NewEngine(set), notifier, zerolog.Nop(), m)

	env.router = gin.New()
	api := env.router.Group("/")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextDoctorID, env.doctor.ID.String())
		c.Next()
	})
	NewHandler(service, notifier, StreamConfig{PingInterval: time.Second, AllowedOrigins: []string{"*"}}).RegisterRoutes(api)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func diagnosesPath(patientID uuid.UUID) string {
	return "/patients/" + patientID.String() + "/diagnoses"
}

func TestCreateDiagnosis_Success(t *testing.T) {
	env := newTestEnv(t)
	sub := env.hub.Subscribe(env.patient.ID)
	defer sub.Close()

	w, body := env.do(t, http.MethodPost, diagnosesPath(env.patient.ID), gin.H{
		"diagnosis_name": "Influenza",
		"description":    "fever",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Influenza", body["diagnosis_name"])
	assert.Equal(t, "Dr. Grey", body["doctor_name"])
	assert.Equal(t, env.doctor.ID.String(), body["doctor_id"])
	assert.NotContains(t, body, "one_time")
	assert.Equal(t, 1, env.store.DiagnosisCount(env.patient.ID))

	select {
	case d := <-sub.C:
		assert.Equal(t, body["id"], d.ID.String())
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
	select {
	case d := <-sub.C:
		t.Fatalf("second notification %s", d.ID)
	default:
	}
}

func TestCreateDiagnosis_RedundantWarning(t *testing.T) {
	env := newTestEnv(t)
	path := diagnosesPath(env.patient.ID)

	w, first := env.do(t, http.MethodPost, path, gin.H{"diagnosis_name": "measles", "description": "rash"})
	require.Equal(t, http.StatusOK, w.Code)

	w, body := env.do(t, http.MethodPost, path, gin.H{"diagnosis_name": "MEASLES", "description": "rash again"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, "REDUNDANT_DIAGNOSIS", body["code"])
	assert.Equal(t, float64(400), body["statusCode"])
	assert.Equal(t, true, body["warning"])
	assert.NotEmpty(t, body["error"])

	existing, ok := body["existing_diagnosis"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, first["id"], existing["id"])
	assert.Equal(t, "measles", existing["diagnosis_name"])
	assert.NotEmpty(t, existing["created_at"])

	// same disease on another patient is independent
	w, _ = env.do(t, http.MethodPost, diagnosesPath(env.other.ID), gin.H{"diagnosis_name": "measles", "description": "rash"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateDiagnosis_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
		body interface{}
		msg  string
	}{
		{"missing name", diagnosesPath(env.patient.ID), gin.H{"description": "x"}, "diagnosis_name is required"},
		{"blank description", diagnosesPath(env.patient.ID), gin.H{"diagnosis_name": "flu", "description": "  "}, "description is required"},
		{"bad patient id", "/patients/not-a-uuid/diagnoses", gin.H{"diagnosis_name": "flu", "description": "x"}, "Invalid patient id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Equal(t, tt.msg, body["error"])
			assert.NotContains(t, body, "warning")
		})
	}
	assert.Equal(t, 0, env.store.DiagnosisCount(env.patient.ID))
}

func TestCreateDiagnosis_UnknownPatient(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, diagnosesPath(uuid.New()), gin.H{"diagnosis_name": "flu", "description": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FOREIGN_KEY_VIOLATION", body["code"])
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestListAndGetDiagnoses(t *testing.T) {
	env := newTestEnv(t)
	path := diagnosesPath(env.patient.ID)

	_, first := env.do(t, http.MethodPost, path, gin.H{"diagnosis_name": "Otitis", "description": "ear"})
	_, second := env.do(t, http.MethodPost, path, gin.H{"diagnosis_name": "Influenza", "description": "fever"})

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	ids := []interface{}{list[0]["id"], list[1]["id"]}
	assert.ElementsMatch(t, []interface{}{first["id"], second["id"]}, ids)

	w, got := env.do(t, http.MethodGet, path+"/"+first["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Otitis", got["diagnosis_name"])

	w, body := env.do(t, http.MethodGet, path+"/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, diagnosesPath(env.other.ID), nil))
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func dialStream(t *testing.T, server *httptest.Server, patientID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + diagnosesPath(patientID) + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, wait time.Duration) (realtime.Event, error) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	var event realtime.Event
	err := conn.ReadJSON(&event)
	return event, err
}

func TestStream_DeliversOnlyNewRecords(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	// created before anyone is watching
	_, early := env.do(t, http.MethodPost, diagnosesPath(env.patient.ID), gin.H{"diagnosis_name": "Otitis", "description": "ear"})

	watcher := dialStream(t, server, env.patient.ID)
	defer watcher.Close()
	bystander := dialStream(t, server, env.other.ID)
	defer bystander.Close()

	_, created := env.do(t, http.MethodPost, diagnosesPath(env.patient.ID), gin.H{"diagnosis_name": "measles", "description": "rash"})

	event, err := readEvent(t, watcher, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, realtime.EventDiagnosisCreated, event.Type)
	assert.Equal(t, env.patient.ID, event.PatientID)
	require.NotNil(t, event.Diagnosis)
	assert.Equal(t, created["id"], event.Diagnosis.ID.String())
	assert.NotEqual(t, early["id"], event.Diagnosis.ID.String())
	assert.Equal(t, "Dr. Grey", event.Diagnosis.DoctorName)

	_, err = readEvent(t, watcher, 100*time.Millisecond)
	assert.Error(t, err, "exactly one frame expected")

	_, err = readEvent(t, bystander, 100*time.Millisecond)
	assert.Error(t, err, "other patients' streams stay silent")
}

func TestStream_CloseReleasesSubscription(t *testing.T) {
	env := newTestEnv(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	conn := dialStream(t, server, env.patient.ID)
	assert.Equal(t, 1, env.hub.SubscriberCount(env.patient.ID))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool {
		return env.hub.SubscriberCount(env.patient.ID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
