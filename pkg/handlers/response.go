package handlers

import (
	"encoding/json"
	"net/http"
)

// errorEnvelope is the error shape every endpoint shares.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse writes the shared error envelope: {"error": code,
// "message": human readable}. Returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, errorEnvelope{Error: errorCode, Message: message})
}

// WriteJSON encodes data as the response body. WriteHeader is skipped for
// 200 so a failed encode can still surface through the error return.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
