package docs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(&r.RouterGroup)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSpec_Structure(t *testing.T) {
	spec := NewHandler("", "http://localhost:3000").Spec()

	assert.Equal(t, "3.0.3", spec["openapi"])

	info := spec["info"].(map[string]interface{})
	assert.Equal(t, Title, info["title"])
	assert.Equal(t, "1.0.0", info["version"])

	servers := spec["servers"].([]map[string]interface{})
	require.Len(t, servers, 1)
	assert.Equal(t, "http://localhost:3000", servers[0]["url"])

	paths := spec["paths"].(map[string]interface{})
	create := paths["/patients/{id}/diagnoses"].(map[string]interface{})["post"].(map[string]interface{})
	responses := create["responses"].(map[string]interface{})
	assert.Contains(t, responses, "400")
	assert.Contains(t, responses, "409")

	schemas := spec["components"].(map[string]interface{})["schemas"].(map[string]interface{})
	errSchema := schemas["Error"].(map[string]interface{})["properties"].(map[string]interface{})
	for _, field := range []string{"error", "statusCode", "code", "warning", "existing_diagnosis"} {
		assert.Contains(t, errSchema, field)
	}
}

func TestSpec_NoServersWithoutBaseURL(t *testing.T) {
	spec := NewHandler("2.1.0", "").Spec()
	assert.NotContains(t, spec, "servers")
	assert.Equal(t, "2.1.0", spec["info"].(map[string]interface{})["version"])
}

func TestRoutes(t *testing.T) {
	h := NewHandler("1.0.0", "")

	w := serve(h, "/documentation/json")
	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/auth/login")

	w = serve(h, "/documentation")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `url: "/documentation/json"`)
}
