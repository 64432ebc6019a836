package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medhist-api/pkg/errors"
	"github.com/jwalitptl/medhist-api/pkg/httputil"
)

const (
	ContextDoctorID = "doctor_id"

	// browsers cannot set headers on websocket requests
	queryAccessToken = "access_token"
)

// TokenVerifier resolves a bearer token to the authenticated doctor
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate verifies the bearer token and sets the doctor id in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		doctorID, err := m.verifier.Verify(token)
		if err != nil {
			httputil.RespondWithError(c, errors.Classify(err))
			return
		}

		c.Set(ContextDoctorID, doctorID.String())
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query(queryAccessToken); token != "" {
			return token, nil
		}
		return "", errors.NewUnauthorized("Missing authorization header", nil)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.NewUnauthorized("Invalid authorization format", nil)
	}
	return strings.TrimSpace(parts[1]), nil
}

// DoctorID returns the authenticated doctor set by Authenticate
func DoctorID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(ContextDoctorID))
	if err != nil {
		return uuid.Nil
	}
	return id
}
