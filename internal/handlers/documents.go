package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/store"
)

const maxDocumentBytes = 4 << 20

// GetDocument returns the stored document, or {} when none was saved.
func GetDocument(doc store.Document) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := store.Get(r.Context(), Store, doc)
		if err != nil {
			log.Printf("[store] get %s: %v", doc, err)
			writeError(w, http.StatusInternalServerError, "Failed to load "+string(doc))
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// PutDocument replaces the stored document with the request body.
func PutDocument(doc store.Document) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}

		if err := store.Set(r.Context(), Store, doc, body); err != nil {
			if errors.Is(err, store.ErrInvalidDocument) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Printf("[store] save %s: %v", doc, err)
			writeError(w, http.StatusInternalServerError, "Failed to save "+string(doc))
			return
		}
		writeOK(w)
	}
}
