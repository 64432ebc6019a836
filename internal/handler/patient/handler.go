package patient

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/internal/service/patient"
	"github.com/jwalitptl/medhist-api/pkg/errors"
	"github.com/jwalitptl/medhist-api/pkg/httputil"
)

type Handler struct {
	service patient.PatientService
}

func NewHandler(service patient.PatientService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		// :id is the passport id here and the patient uuid on nested routes
		patients.GET("/:id", h.GetPatient)
		patients.GET("/:id/immunizations", h.ListImmunizations)
	}
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, err := h.service.GetByPassport(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) ListImmunizations(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewValidation("Invalid patient id", "", err))
		return
	}

	immunizations, err := h.service.ListImmunizations(c.Request.Context(), patientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, immunizations)
}
