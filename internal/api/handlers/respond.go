package handlers

import (
	"encoding/json"
	"net/http"
)

// Response statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrorResponse is the body of a failed pipeline request
type ErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondStatusError(w http.ResponseWriter, status int, message string, errs ...ValidationError) {
	respondJSON(w, status, ErrorResponse{
		Status:  StatusError,
		Message: message,
		Errors:  errs,
	})
}
