package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medhist-api/internal/model"
	"github.com/jwalitptl/medhist-api/pkg/httputil"
	"github.com/jwalitptl/medhist-api/pkg/validator"
)

type LoginService interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
}

type Handler struct {
	service LoginService
}

func NewHandler(service LoginService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, validator.FromBindError(err))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, resp)
}
