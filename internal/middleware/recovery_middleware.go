// internal/middleware/recovery_middleware.go
package middleware

import (
	xerrors "rollcall-service/internal/pkg/errors"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope. When the
// handler already started writing, the request is only aborted.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(ctxRequestID)),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.FromError(c, "internal server error", xerrors.ErrInternal)
		}()
		c.Next()
	}
}
