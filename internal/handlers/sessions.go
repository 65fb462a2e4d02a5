package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/relay"
)

// ListSessions returns live and recently closed relay sessions.
func ListSessions(w http.ResponseWriter, r *http.Request) {
	list := Sessions.List()
	infos := make([]relay.Info, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.Info())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": infos})
}

// CloseSession force-closes one relay session.
func CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := Sessions.Close(id); err != nil {
		if errors.Is(err, relay.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
