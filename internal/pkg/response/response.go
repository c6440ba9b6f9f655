// internal/pkg/response/response.go
package response

import (
	"net/http"

	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers never run
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Code = xerrors.Code(err)
		response.Error = publicMessage(err, response.Code)
		response.Detail = response.Error
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	if code == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}

	c.JSON(code, response)
}

// publicMessage hides unmapped errors: their text can carry driver or
// connection details.
func publicMessage(err error, code string) string {
	if code == xerrors.CodeInternal {
		return xerrors.ErrInternal.Error()
	}
	return err.Error()
}

// FromError picks the status from err and sends it with message.
func FromError(c *gin.Context, message string, err error) {
	Error(c, xerrors.HTTPStatus(err), message, err)
}

// NoContent sends 204 with no body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
