package handler

import (
	"encoding/json"
	"net/http"
)

// HealthCheckHandler reports process liveness as JSON. Docker and other
// services can probe it for health checks.
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
