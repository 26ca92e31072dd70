package response

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the uniform error envelope for JSON error responses
type ErrorBody struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Log error but don't try to write again
			return
		}
	}
}

// Success writes a 200 response with data
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 created response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error writes an error response with the uniform envelope
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Error: code, Message: message})
}

// ErrorWithDetails writes an error response carrying extra details
func ErrorWithDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	JSON(w, status, ErrorBody{Error: code, Message: message, Details: details})
}

// BadRequest writes a 400 bad request response
func BadRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Bad request"
	}
	Error(w, http.StatusBadRequest, "bad_request", message)
}

// InternalError writes a 500 internal server error response
func InternalError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Internal server error"
	}
	Error(w, http.StatusInternalServerError, "server_error", message)
}

// BadGateway writes a 502 upstream failure response
func BadGateway(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Upstream service error"
	}
	Error(w, http.StatusBadGateway, "upstream_error", message)
}

// GatewayTimeout writes a 504 response for a timed-out upstream call
func GatewayTimeout(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Generation took too long. Please try again in a moment."
	}
	Error(w, http.StatusGatewayTimeout, "timeout", message)
}
