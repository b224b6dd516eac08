package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"nota/internal/domain"
	"nota/internal/middleware"
	"nota/internal/service"
	"nota/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type NoteHandler struct {
	service  *service.NoteService
	validate *validator.Validate
}

func NewNoteHandler(service *service.NoteService) *NoteHandler {
	return &NoteHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *NoteHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	notes, err := h.service.Fetch(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{"notes": notes})
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r)

	note, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{"note": note})
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "Invalid note id.")
		return
	}

	var req domain.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.Update(r.Context(), userID, noteID, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, nil)
}

func (h *NoteHandler) UpdateMeta(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "Invalid note id.")
		return
	}

	var req domain.UpdateNoteMetaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.UpdateMeta(r.Context(), userID, noteID, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, nil)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "Invalid note id.")
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.Delete(r.Context(), userID, noteID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, nil)
}

func (h *NoteHandler) TogglePublic(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "Invalid note id.")
		return
	}

	var req domain.TogglePublicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r)

	note, err := h.service.TogglePublic(r.Context(), userID, noteID, req.Public)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{"note": note})
}

func (h *NoteHandler) History(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "Invalid note id.")
		return
	}

	userID := middleware.GetUserID(r)

	versions, err := h.service.History(r.Context(), userID, noteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{"versions": versions})
}

func (h *NoteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]
	if noteID == "" {
		response.BadRequest(w, "Invalid restore request.")
		return
	}

	var req domain.RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "Invalid restore request.")
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.Restore(r.Context(), userID, noteID, req.VersionID); err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, nil)
}

func (h *NoteHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	payload, err := h.service.Export(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, payload)
}

func (h *NoteHandler) Import(w http.ResponseWriter, r *http.Request) {
	var payload domain.ImportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "Invalid import file.")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		response.BadRequest(w, "Invalid import file.")
		return
	}

	userID := middleware.GetUserID(r)

	result, err := h.service.Import(r.Context(), userID, &payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Success(w, result)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Storage failures log the operator detail and return a generic message.
func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		response.InternalError(w, "Server error.")
		return
	}

	switch svcErr.Code {
	case service.CodeValidation:
		response.BadRequest(w, svcErr.Message)
	case service.CodeNotFound:
		response.NotFound(w, svcErr.Message)
	case service.CodeConflict:
		response.Conflict(w, svcErr.Message)
	default:
		log.Printf("storage error: %v", svcErr)
		response.InternalError(w, "Server error.")
	}
}
