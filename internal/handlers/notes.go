package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// NoteLister returns the notes written for an order or subscription.
type NoteLister interface {
	ListNotes(ctx context.Context, subject models.NoteSubject, subjectID int64) ([]models.Note, error)
}

// Notes lists notes for the subject identified by the URL parameter param.
func Notes(lister NoteLister, subject models.NoteSubject, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, param)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_id", "invalid id")
			return
		}

		notes, err := lister.ListNotes(r.Context(), subject, id)
		if err != nil {
			log.Printf("[notes] %s %d: %v", subject, id, err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load notes")
			return
		}
		if notes == nil {
			notes = []models.Note{}
		}

		writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
	}
}
