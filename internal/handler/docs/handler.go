package docs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	Title       = "Emergency Medical System API"
	Description = "API for Emergency Medical Patient History System"
)

// Handler serves the OpenAPI document and a Swagger UI page under /documentation.
type Handler struct {
	version string
	baseURL string
}

func NewHandler(version, baseURL string) *Handler {
	if version == "" {
		version = "1.0.0"
	}
	return &Handler{version: version, baseURL: baseURL}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	docs := r.Group("/documentation")
	{
		docs.GET("", h.UI)
		docs.GET("/json", h.Document)
	}
}

func (h *Handler) UI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerUIHTML))
}

func (h *Handler) Document(c *gin.Context) {
	c.JSON(http.StatusOK, h.Spec())
}

// Spec builds the OpenAPI 3.0 document for the routes the API serves.
func (h *Handler) Spec() map[string]interface{} {
	doc := map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       Title,
			"description": Description,
			"version":     h.version,
		},
		"paths":      paths(),
		"components": components(),
		"security":   []map[string]interface{}{{"bearerAuth": []string{}}},
	}
	if h.baseURL != "" {
		doc["servers"] = []map[string]interface{}{{"url": h.baseURL}}
	}
	return doc
}

func paths() map[string]interface{} {
	public := []map[string]interface{}{}
	patientID := pathParam("id", "Patient UUID", "uuid")

	return map[string]interface{}{
		"/auth/login": map[string]interface{}{
			"post": map[string]interface{}{
				"summary":     "Log in as a doctor",
				"operationId": "login",
				"tags":        []string{"auth"},
				"security":    public,
				"requestBody": jsonBody("#/components/schemas/LoginRequest"),
				"responses": map[string]interface{}{
					"200": jsonResponse("Token and doctor identity", "#/components/schemas/LoginResponse"),
					"400": errorResponse("Malformed request"),
					"401": errorResponse("Invalid credentials"),
				},
			},
		},
		"/patients/{id}": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Look up a patient by passport ID",
				"operationId": "getPatient",
				"tags":        []string{"patients"},
				"parameters":  []map[string]interface{}{pathParam("id", "Passport ID", "")},
				"responses": map[string]interface{}{
					"200": jsonResponse("Patient", "#/components/schemas/Patient"),
					"404": errorResponse("Unknown patient"),
				},
			},
		},
		"/patients/{id}/immunizations": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List a patient's immunizations",
				"operationId": "listImmunizations",
				"tags":        []string{"patients"},
				"parameters":  []map[string]interface{}{patientID},
				"responses": map[string]interface{}{
					"200": jsonArrayResponse("Immunizations", "#/components/schemas/Immunization"),
				},
			},
		},
		"/patients/{id}/diagnoses": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List a patient's diagnoses, newest first",
				"operationId": "listDiagnoses",
				"tags":        []string{"diagnoses"},
				"parameters":  []map[string]interface{}{patientID},
				"responses": map[string]interface{}{
					"200": jsonArrayResponse("Diagnoses", "#/components/schemas/Diagnosis"),
				},
			},
			"post": map[string]interface{}{
				"summary":     "Record a diagnosis",
				"operationId": "createDiagnosis",
				"tags":        []string{"diagnoses"},
				"parameters":  []map[string]interface{}{patientID},
				"requestBody": jsonBody("#/components/schemas/CreateDiagnosisRequest"),
				"responses": map[string]interface{}{
					"200": jsonResponse("Created diagnosis", "#/components/schemas/Diagnosis"),
					"400": errorResponse("Validation failure, unknown reference or REDUNDANT_DIAGNOSIS warning"),
					"409": errorResponse("Concurrent one-time diagnosis"),
				},
			},
		},
		"/patients/{id}/diagnoses/{diagnosisId}": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Fetch one diagnosis",
				"operationId": "getDiagnosis",
				"tags":        []string{"diagnoses"},
				"parameters": []map[string]interface{}{
					patientID,
					pathParam("diagnosisId", "Diagnosis UUID", "uuid"),
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("Diagnosis", "#/components/schemas/Diagnosis"),
					"404": errorResponse("Unknown diagnosis"),
				},
			},
		},
		"/patients/{id}/diagnoses/stream": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "WebSocket stream of new diagnoses for a patient",
				"operationId": "streamDiagnoses",
				"tags":        []string{"diagnoses"},
				"parameters":  []map[string]interface{}{patientID},
				"responses": map[string]interface{}{
					"101": map[string]interface{}{"description": "Switching to WebSocket"},
				},
			},
		},
		"/health/live":  healthPath("Liveness"),
		"/health/ready": healthPath("Readiness of backing services"),
		"/health/metrics": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":  "Prometheus metrics",
				"tags":     []string{"health"},
				"security": public,
				"responses": map[string]interface{}{
					"200": map[string]interface{}{"description": "Text exposition format"},
				},
			},
		},
	}
}

func components() map[string]interface{} {
	str := map[string]interface{}{"type": "string"}
	uuidStr := map[string]interface{}{"type": "string", "format": "uuid"}
	dateTime := map[string]interface{}{"type": "string", "format": "date-time"}
	date := map[string]interface{}{"type": "string", "format": "date"}

	return map[string]interface{}{
		"securitySchemes": map[string]interface{}{
			"bearerAuth": map[string]interface{}{
				"type":         "http",
				"scheme":       "bearer",
				"bearerFormat": "JWT",
			},
		},
		"schemas": map[string]interface{}{
			"LoginRequest": object([]string{"email", "password"}, map[string]interface{}{
				"email":    map[string]interface{}{"type": "string", "format": "email"},
				"password": str,
			}),
			"LoginResponse": object([]string{"token", "user"}, map[string]interface{}{
				"token": str,
				"user": object([]string{"id", "email"}, map[string]interface{}{
					"id":    uuidStr,
					"email": str,
				}),
			}),
			"Patient": object(nil, map[string]interface{}{
				"id":          uuidStr,
				"passport_id": str,
				"full_name":   str,
				"birth_date":  date,
				"gender":      map[string]interface{}{"type": "string", "enum": []string{"male", "female", "other"}},
				"recorded_at": dateTime,
			}),
			"Immunization": object(nil, map[string]interface{}{
				"id":           uuidStr,
				"patient_id":   uuidStr,
				"disease_name": str,
				"vaccinated":   map[string]interface{}{"type": "boolean"},
				"date":         date,
			}),
			"CreateDiagnosisRequest": object([]string{"diagnosis_name", "description"}, map[string]interface{}{
				"diagnosis_name": map[string]interface{}{"type": "string", "maxLength": 255},
				"description":    str,
			}),
			"Diagnosis": object(nil, map[string]interface{}{
				"id":             uuidStr,
				"patient_id":     uuidStr,
				"doctor_id":      uuidStr,
				"doctor_name":    str,
				"diagnosis_name": str,
				"description":    str,
				"created_at":     dateTime,
			}),
			"Error": object([]string{"error", "statusCode", "code"}, map[string]interface{}{
				"error":      str,
				"statusCode": map[string]interface{}{"type": "integer"},
				"code":       str,
				"warning":    map[string]interface{}{"type": "boolean"},
				"existing_diagnosis": object(nil, map[string]interface{}{
					"id":             uuidStr,
					"diagnosis_name": str,
					"created_at":     dateTime,
				}),
			}),
		},
	}
}

func healthPath(summary string) map[string]interface{} {
	return map[string]interface{}{
		"get": map[string]interface{}{
			"summary":  summary,
			"tags":     []string{"health"},
			"security": []map[string]interface{}{},
			"responses": map[string]interface{}{
				"200": map[string]interface{}{"description": "UP"},
				"503": map[string]interface{}{"description": "DOWN"},
			},
		},
	}
}

func object(required []string, props map[string]interface{}) map[string]interface{} {
	o := map[string]interface{}{"type": "object", "properties": props}
	if len(required) > 0 {
		o["required"] = required
	}
	return o
}

func pathParam(name, description, format string) map[string]interface{} {
	schema := map[string]interface{}{"type": "string"}
	if format != "" {
		schema["format"] = format
	}
	return map[string]interface{}{
		"name":        name,
		"in":          "path",
		"required":    true,
		"description": description,
		"schema":      schema,
	}
}

func jsonBody(ref string) map[string]interface{} {
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{"$ref": ref},
			},
		},
	}
}

func jsonResponse(description, ref string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{"$ref": ref},
			},
		},
	}
}

func jsonArrayResponse(description, ref string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"$ref": ref},
				},
			},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, "#/components/schemas/Error")
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Emergency Medical System API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/documentation/json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`
