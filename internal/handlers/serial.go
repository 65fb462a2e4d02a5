package handlers

import (
	"log"
	"net/http"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/serialports"
)

// ListPorts enumerates serial devices. Tests replace it.
var ListPorts = serialports.List

func ListSerialPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := ListPorts()
	if err != nil {
		log.Printf("[gateway] %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list serial ports")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ports": ports})
}
