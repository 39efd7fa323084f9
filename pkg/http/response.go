package http

import (
	"encoding/json"
	"net/http"
)

// SuccessResponse is the envelope for successful API responses.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON encodes v as the response body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Encoding errors can't be reported once the header is out
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a SuccessResponse.
func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, SuccessResponse{Success: true, Message: message, Data: data})
}
