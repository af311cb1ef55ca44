package api

import "github.com/gin-gonic/gin"

// APIResponse is the standard envelope for the handful of plain HTTP
// endpoints this server exposes alongside the WebSocket upgrade route.
type APIResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Success bool        `json:"success"`
}

// APIError represents error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse sends a successful response with data.
func SuccessResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
	})
}

// ErrorResponse sends an error response.
func ErrorResponse(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
	})
}

// Common error codes.
const (
	ErrCodeNotFound = "NOT_FOUND"
)
