package main

import (
	"net/http"

	"csrdesk/config"
	"csrdesk/render"
)

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	render.Error(w, message, statusCode)
}

// GetConfigHandler returns the loaded configuration. Secrets are not serialized.
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, config.GetConfig())
	}
}

// HealthHandler reports whether the database answers.
func HealthHandler(ping func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ping(); err != nil {
			writeJSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
