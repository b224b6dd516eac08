package handler

import (
	"net/http"

	"nota/internal/service"
	"nota/pkg/markdown"
	"nota/pkg/response"

	"github.com/gorilla/mux"
)

// PublicHandler serves the unauthenticated read view for shared notes.
type PublicHandler struct {
	service *service.NoteService
}

func NewPublicHandler(service *service.NoteService) *PublicHandler {
	return &PublicHandler{service: service}
}

func (h *PublicHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	note, err := h.service.PublicNote(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"note": note,
		"html": markdown.Render(note.Content),
	})
}
