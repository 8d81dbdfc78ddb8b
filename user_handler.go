package main

import (
	"errors"
	"net/http"

	"csrdesk/database"
	"csrdesk/render"

	"go.uber.org/zap"
)

// GetUserHandler returns one user looked up by _id or ReferenceID.
func GetUserHandler(store *database.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			writeJSONError(w, "User ID is required", http.StatusBadRequest)
			return
		}
		user, err := store.FindUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeJSONError(w, "User not found", http.StatusNotFound)
				return
			}
			logger.Error("Error fetching user", zap.String("id", id), zap.Error(err))
			writeJSONError(w, "Failed to fetch user", http.StatusInternalServerError)
			return
		}
		render.JSON(w, http.StatusOK, user)
	}
}
