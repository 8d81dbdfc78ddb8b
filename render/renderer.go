// Package render writes handler responses. Every handler package shares it so
// that error bodies look the same everywhere: {"message": "..."}.
package render

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

// Error writes {"message": message} with the given status code.
func Error(w http.ResponseWriter, message string, status int) {
	JSON(w, status, map[string]string{"message": message})
}

// Message is a 200 response carrying only a message.
func Message(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, map[string]string{"message": message})
}
