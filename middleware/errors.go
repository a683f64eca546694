package middleware

import (
	"encoding/json"
	"net/http"
)

// Error codes
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodePLCConnectionError = "PLC_CONNECTION_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// HTTPError represents an HTTP error with status code and error response
type HTTPError struct {
	StatusCode int
	Response   ErrorResponse
}

// Error implements the error interface
func (e HTTPError) Error() string {
	return e.Response.Error.Message
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, code, message string, details map[string]interface{}) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Response: ErrorResponse{
			Error: ErrorDetail{
				Code:    code,
				Message: message,
				Details: details,
			},
		},
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *HTTPError {
	return NewHTTPError(
		http.StatusBadRequest,
		ErrCodeInvalidRequest,
		message,
		nil,
	)
}

// NewPLCConnectionError creates a PLC connection error
func NewPLCConnectionError(message string) *HTTPError {
	return NewHTTPError(
		http.StatusServiceUnavailable,
		ErrCodePLCConnectionError,
		message,
		nil,
	)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *HTTPError {
	return NewHTTPError(
		http.StatusInternalServerError,
		ErrCodeInternalError,
		message,
		nil,
	)
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	var ok bool

	if httpErr, ok = err.(*HTTPError); !ok {
		// Convert regular errors to internal errors
		httpErr = NewInternalError(err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.StatusCode)
	json.NewEncoder(w).Encode(httpErr.Response)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}
