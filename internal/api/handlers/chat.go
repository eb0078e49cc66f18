package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/privylex/privylex/internal/chat"
	"github.com/privylex/privylex/internal/session"
)

type ChatHandler struct {
	chats     *chat.Controller
	selection *session.Selection
}

func NewChatHandler(chats *chat.Controller, selection *session.Selection) *ChatHandler {
	return &ChatHandler{chats: chats, selection: selection}
}

type submitRequest struct {
	Query string `json:"query"`
}

// Submit starts a chat turn against the currently selected document.
// The user message and the pending placeholder are in the transcript
// by the time this returns.
func (h *ChatHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return
	}

	docID, ok := h.selection.Active()
	if !ok {
		writeErr(w, http.StatusConflict, "no document selected")
		return
	}

	if err := h.chats.Submit(docID, req.Query); err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuery):
			writeErr(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chat.ErrNotSelected),
			errors.Is(err, chat.ErrNotReady),
			errors.Is(err, chat.ErrTurnInFlight):
			writeErr(w, http.StatusConflict, err.Error())
		default:
			writeErr(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"document_id": docID.String(),
		"transcript":  h.chats.Transcript(docID),
	})
}

func (h *ChatHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	docID, ok := h.transcriptTarget(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "document_id required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": docID.String(),
		"transcript":  h.chats.Transcript(docID),
	})
}

// Stream pushes transcript change events over SSE. An optional
// document_id query param filters to one document; by default every
// change is forwarded, including turns that settle on documents no
// longer selected.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var filter *uuid.UUID
	if raw := r.URL.Query().Get("document_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid document_id")
			return
		}
		filter = &id
	}

	events, cancel := h.chats.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if filter != nil && ev.DocumentID != *filter {
				continue
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h *ChatHandler) transcriptTarget(r *http.Request) (uuid.UUID, bool) {
	if raw := r.URL.Query().Get("document_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.UUID{}, false
		}
		return id, true
	}
	return h.selection.Active()
}
