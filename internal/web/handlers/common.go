package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

const errInvalidRequestBody = "invalid request body"

// userIDHeader carries the caller identity. Authentication itself is
// terminated upstream; handlers only need the resolved user ID.
const userIDHeader = "X-User-ID"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// requireUser extracts the caller's user ID, responding 400 when absent.
func requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
	}
	return userID
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
