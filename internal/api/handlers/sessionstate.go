package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/privylex/privylex/internal/lifecycle"
	"github.com/privylex/privylex/internal/session"
)

type SessionHandler struct {
	selection *session.Selection
	manager   *lifecycle.Manager
}

func NewSessionHandler(selection *session.Selection, manager *lifecycle.Manager) *SessionHandler {
	return &SessionHandler{selection: selection, manager: manager}
}

type selectRequest struct {
	// DocumentID null deselects and detaches the chat view.
	DocumentID *uuid.UUID `json:"document_id"`
}

// Select records which document the chat is scoped to. Pure view
// state: it never mutates the document and never cancels an
// in-flight call.
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DocumentID != nil {
		if _, ok := h.manager.Get(*req.DocumentID); !ok {
			writeErr(w, http.StatusNotFound, "document not found")
			return
		}
	}

	h.selection.Select(req.DocumentID)
	h.Get(w, r)
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.selection.Active(); ok {
		writeJSON(w, http.StatusOK, map[string]string{"document_id": id.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"document_id": nil})
}
