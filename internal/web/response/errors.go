package response

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HTTPError is an error carrying the status it should be rendered with
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates an HTTPError with a code derived from status
func NewHTTPError(status int, message string, err error) *HTTPError {
	return &HTTPError{StatusCode: status, Message: message, Code: errorCodeFromStatus(status), Err: err}
}

// RenderError renders err. An *HTTPError keeps its status and code; any
// other error is an internal error whose message is not exposed.
func RenderError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		message := httpErr.Message
		if httpErr.Err != nil && httpErr.StatusCode < http.StatusInternalServerError {
			message = httpErr.Error()
		}
		write(w, httpErr.StatusCode, &ErrorResponse{Error: "error", Message: message, Code: httpErr.Code})
		return
	}
	RenderInternalError(w, err)
}

// RenderErrorWithDetails renders an error with additional details
func RenderErrorWithDetails(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	write(w, status, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    errorCodeFromStatus(status),
		Details: details,
	})
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderError(w, NewHTTPError(http.StatusBadRequest, message, nil))
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RenderError(w, NewHTTPError(http.StatusNotFound, message, nil))
}

// RenderMethodNotAllowed renders a 405 Method Not Allowed error
func RenderMethodNotAllowed(w http.ResponseWriter) {
	RenderError(w, NewHTTPError(http.StatusMethodNotAllowed, "method not allowed", nil))
}

// RenderInternalError renders a 500 Internal Server Error without exposing err
func RenderInternalError(w http.ResponseWriter, _ error) {
	write(w, http.StatusInternalServerError, &ErrorResponse{
		Error:   "internal_server_error",
		Message: "Internal server error",
		Code:    errorCodeFromStatus(http.StatusInternalServerError),
	})
}

func write(w http.ResponseWriter, status int, body *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusNotAcceptable:
		return "not_acceptable"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
