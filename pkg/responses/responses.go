package responses

import (
	"errors"
	"net/http"

	"github.com/L-Ayim/Vault/internal/services"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewSuccessResponse creates a successful API response
func NewSuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response
func NewErrorResponse(error string, details string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   error,
		Details: details,
	}
}

// FromServiceError maps the service error taxonomy onto HTTP statuses
// and writes the response.
func FromServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
		message = "Not found"
	case errors.Is(err, services.ErrPermissionDenied):
		status = http.StatusForbidden
		message = "Permission denied"
	case errors.Is(err, services.ErrInvalidArgument):
		status = http.StatusBadRequest
		message = "Invalid request"
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
		message = "Conflict"
	case errors.Is(err, services.ErrUnauthenticated):
		status = http.StatusUnauthorized
		message = "Authentication required"
	}

	detail := ""
	if status != http.StatusInternalServerError {
		detail = err.Error()
	}
	c.JSON(status, NewErrorResponse(message, detail))
}
