package handlers

import "net/http"

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	backend := "none"
	status := "unhealthy"
	if Store != nil {
		backend = Store.Name()
		status = "healthy"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"store":    backend,
		"sessions": Sessions.ActiveCount(),
	})
}
