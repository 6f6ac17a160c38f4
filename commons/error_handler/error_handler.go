package error_handler

import (
	"net/http"

	"streakd/commons/response"
)

type ErrorCollection struct {
	errors []response.Errors
}

func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		errors: make([]response.Errors, 0),
	}
}

func (ec *ErrorCollection) AddError(code int, message string, data any) *ErrorCollection {
	ec.errors = append(ec.errors, response.Errors{
		ErrorCode: code,
		Message:   message,
		Data:      data,
	})
	return ec
}

func (ec *ErrorCollection) HasErrors() bool {
	return len(ec.errors) > 0
}

func (ec *ErrorCollection) GetErrors() []response.Errors {
	return ec.errors
}

// GetHTTPStatus follows the first error. Codes outside the 4xx/5xx range fall
// back to 400.
func (ec *ErrorCollection) GetHTTPStatus() int {
	if !ec.HasErrors() {
		return http.StatusOK
	}

	code := ec.errors[0].ErrorCode
	if code >= 400 && code < 600 {
		return code
	}
	return http.StatusBadRequest
}

// Common error codes
const (
	CodeValidationError     = 400
	CodeUnauthorized        = 401
	CodeNotFound            = 404
	CodeConflict            = 409
	CodeInternalServerError = 500
	CodeBadGateway          = 502
)

func GetInternalServerError(message string) response.Errors {
	return response.Errors{
		ErrorCode: CodeInternalServerError,
		Message:   message,
		Data:      nil,
	}
}
