package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medhist-api/pkg/errors"
	"github.com/jwalitptl/medhist-api/pkg/httputil"
)

// Recovery handles panics and renders them as the generic internal error
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(c.Request.Context()).Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("client_ip", c.ClientIP()).
					Msg("request panic recovered")

				httputil.RespondWithError(c, errors.NewInternal("panic", fmt.Errorf("%v", rec)))
			}
		}()
		c.Next()
	}
}
