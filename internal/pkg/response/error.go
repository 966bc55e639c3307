package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/apperror"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/logger"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/request"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error sends a JSON error response.
// AppErrors carry their own status code and optional details; anything else is
// logged with the request logger and reported as 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed", "status", appErr.Code, "error", err)
		}
		if len(appErr.Details) == 0 {
			c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message})
			return
		}
		body := gin.H{"error": appErr.Message}
		for k, v := range appErr.Details {
			body[k] = v
		}
		c.JSON(appErr.Code, body)
		return
	}

	logger.FromContext(c.Request.Context()).Error("unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// BadRequest reports a binding or validation failure. Struct validation
// failures are listed per field; anything else goes into details.
func BadRequest(c *gin.Context, message string, err error) {
	body := gin.H{"error": message}
	if fields := request.FieldErrors(err); fields != nil {
		body["fields"] = fields
	} else if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}
