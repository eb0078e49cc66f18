package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/privylex/privylex/internal/auth"
	"github.com/privylex/privylex/internal/chat"
	"github.com/privylex/privylex/internal/intake"
	"github.com/privylex/privylex/internal/lifecycle"
	"github.com/privylex/privylex/internal/session"
)

type DocumentHandler struct {
	manager   *lifecycle.Manager
	chats     *chat.Controller
	selection *session.Selection
}

func NewDocumentHandler(manager *lifecycle.Manager, chats *chat.Controller, selection *session.Selection) *DocumentHandler {
	return &DocumentHandler{manager: manager, chats: chats, selection: selection}
}

// Upload ingests one or more files from a multipart form. Files whose
// declared type is off the allow-list are dropped without an error.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max
		writeErr(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var raw []intake.RawFile
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			f, err := header.Open()
			if err != nil {
				writeErr(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeErr(w, http.StatusBadRequest, "unreadable file part")
				return
			}
			raw = append(raw, intake.RawFile{
				Name:     header.Filename,
				MimeType: header.Header.Get("Content-Type"),
				Data:     data,
			})
		}
	}
	if len(raw) == 0 {
		writeErr(w, http.StatusBadRequest, "file required")
		return
	}

	docs := intake.Ingest(raw)
	for _, doc := range docs {
		h.manager.Add(doc)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"documents": docs,
		"accepted":  len(docs),
		"dropped":   len(raw) - len(docs),
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs := h.manager.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := docID(w, r)
	if !ok {
		return
	}
	doc, ok := h.manager.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := docID(w, r)
	if !ok {
		return
	}
	doc, ok := h.manager.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "document not found")
		return
	}
	resp := map[string]string{"id": doc.ID.String(), "state": string(doc.State)}
	if doc.LastError != "" {
		resp["last_error"] = doc.LastError
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes the document from the working set. Calls already in
// flight for it settle against nothing.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := docID(w, r)
	if !ok {
		return
	}
	if !h.manager.Remove(id) {
		writeErr(w, http.StatusNotFound, "document not found")
		return
	}
	h.chats.Drop(id)
	h.selection.Clear(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *DocumentHandler) Protect(w http.ResponseWriter, r *http.Request) {
	id, ok := docID(w, r)
	if !ok {
		return
	}
	if err := h.manager.Protect(r.Context(), id); err != nil {
		writeLifecycleErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id.String(), "state": "protecting"})
}

func (h *DocumentHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := docID(w, r)
	if !ok {
		return
	}
	wallet := auth.WalletFromContext(r.Context())
	if wallet == "" {
		writeErr(w, http.StatusUnauthorized, "wallet identity required")
		return
	}
	if err := h.manager.Grant(r.Context(), id, wallet); err != nil {
		writeLifecycleErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id.String(), "state": "granting_access"})
}

func docID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid document ID")
		return uuid.UUID{}, false
	}
	return id, true
}

func writeLifecycleErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrCallInFlight),
		errors.Is(err, lifecycle.ErrInvalidState),
		errors.Is(err, lifecycle.ErrNoPayload):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}
