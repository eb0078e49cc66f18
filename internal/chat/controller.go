package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/privylex/privylex/internal/models"
	"github.com/privylex/privylex/internal/protection"
	"github.com/privylex/privylex/internal/session"
)

// Submission gates. The caller is expected to have disabled submission
// via observable state; violations reject without touching any
// transcript.
var (
	ErrNotSelected  = errors.New("document is not the active selection")
	ErrNotReady     = errors.New("document is not ready for processing")
	ErrEmptyQuery   = errors.New("query must not be empty")
	ErrTurnInFlight = errors.New("a query is already being processed for this document")
)

// DocumentRunner is the slice of the lifecycle manager the controller
// needs: document snapshots and the process operation.
type DocumentRunner interface {
	Get(id uuid.UUID) (models.Document, bool)
	Process(ctx context.Context, id uuid.UUID, query string) (*protection.ProcessResult, error)
}

// ResultCache stores normalized insight text keyed by protected
// content handle and query, so repeating a question skips the
// multi-minute confidential run. Implementations degrade to misses on
// any backend trouble.
type ResultCache interface {
	GetInsight(ctx context.Context, contentHandle, query string) (string, bool)
	SetInsight(ctx context.Context, contentHandle, query, text string)
}

// Event is a transcript change notification.
type Event struct {
	DocumentID uuid.UUID            `json:"document_id"`
	Transcript []models.ChatMessage `json:"transcript"`
}

// Controller maintains the per-document chat transcripts. Each
// transcript is strictly append-ordered; the single pending
// placeholder per document is the only entry ever replaced or removed.
type Controller struct {
	mu          sync.Mutex
	transcripts map[uuid.UUID][]models.ChatMessage
	pending     map[uuid.UUID]uuid.UUID // document id -> placeholder message id

	selection *session.Selection
	runner    DocumentRunner
	cache     ResultCache
	logger    *slog.Logger

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewController(selection *session.Selection, runner DocumentRunner, cache ResultCache) *Controller {
	return &Controller{
		transcripts: make(map[uuid.UUID][]models.ChatMessage),
		pending:     make(map[uuid.UUID]uuid.UUID),
		selection:   selection,
		runner:      runner,
		cache:       cache,
		logger:      slog.Default(),
		subs:        make(map[int]chan Event),
	}
}

// Transcript returns a copy of the document's message sequence.
func (c *Controller) Transcript(docID uuid.UUID) []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.transcripts[docID]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// Drop discards the transcript and pending marker for a removed
// document. An in-flight process call for it still settles, but its
// completion handler finds nothing to mutate.
func (c *Controller) Drop(docID uuid.UUID) {
	c.mu.Lock()
	delete(c.transcripts, docID)
	delete(c.pending, docID)
	c.mu.Unlock()
}

// Submit starts a chat turn against the currently selected document:
// the user message and a pending assistant placeholder are appended
// synchronously, then the confidential process call is issued. The
// placeholder is replaced in place on success; on failure it is
// removed and an error message is appended at the end of the
// transcript.
func (c *Controller) Submit(docID uuid.UUID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return ErrEmptyQuery
	}
	active, ok := c.selection.Active()
	if !ok || active != docID {
		return ErrNotSelected
	}
	doc, ok := c.runner.Get(docID)
	if !ok || doc.State != models.StateAccessGranted {
		return ErrNotReady
	}

	c.mu.Lock()
	if _, busy := c.pending[docID]; busy {
		c.mu.Unlock()
		return ErrTurnInFlight
	}

	now := time.Now().UTC()
	placeholder := models.ChatMessage{
		ID:        uuid.New(),
		Sender:    models.SenderAssistant,
		Text:      PendingText,
		CreatedAt: now,
		Pending:   true,
	}
	c.transcripts[docID] = append(c.transcripts[docID],
		models.ChatMessage{
			ID:        uuid.New(),
			Sender:    models.SenderUser,
			Text:      query,
			CreatedAt: now,
		},
		placeholder,
	)
	c.pending[docID] = placeholder.ID
	snapshot := c.snapshotLocked(docID)
	c.mu.Unlock()
	c.broadcast(Event{DocumentID: docID, Transcript: snapshot})

	// Detached from any request context: switching the selection or
	// navigating away does not cancel the turn, and its resolution
	// still lands in this document's transcript.
	go c.run(docID, placeholder.ID, doc.ProtectedAddress, query)
	return nil
}

func (c *Controller) run(docID, placeholderID uuid.UUID, contentHandle, query string) {
	ctx := context.Background()

	if c.cache != nil {
		if text, ok := c.cache.GetInsight(ctx, contentHandle, query); ok {
			c.settleSuccess(docID, placeholderID, text)
			return
		}
	}

	res, err := c.runner.Process(ctx, docID, query)
	if err != nil {
		c.settleFailure(docID, placeholderID, err)
		return
	}

	text := Normalize(res)
	if c.cache != nil && res != nil && res.Result != nil {
		c.cache.SetInsight(ctx, contentHandle, query, text)
	}
	c.settleSuccess(docID, placeholderID, text)
}

// settleSuccess replaces the placeholder in place: same transcript
// position, fresh id and timestamp, normalized text.
func (c *Controller) settleSuccess(docID, placeholderID uuid.UUID, text string) {
	c.mu.Lock()
	msgs, ok := c.transcripts[docID]
	if !ok {
		c.mu.Unlock()
		c.logger.Warn("discarding process result for removed document", "document_id", docID)
		return
	}
	replaced := false
	for i, msg := range msgs {
		if msg.ID == placeholderID {
			msgs[i] = models.ChatMessage{
				ID:        uuid.New(),
				Sender:    models.SenderAssistant,
				Text:      text,
				CreatedAt: time.Now().UTC(),
			}
			replaced = true
			break
		}
	}
	if !replaced {
		c.mu.Unlock()
		c.logger.Warn("process settled but placeholder is gone", "document_id", docID)
		return
	}
	if c.pending[docID] == placeholderID {
		delete(c.pending, docID)
	}
	snapshot := c.snapshotLocked(docID)
	c.mu.Unlock()
	c.broadcast(Event{DocumentID: docID, Transcript: snapshot})
}

// settleFailure removes the placeholder and appends the error message
// at the end of the transcript, after whatever arrived in between.
func (c *Controller) settleFailure(docID, placeholderID uuid.UUID, procErr error) {
	c.mu.Lock()
	msgs, ok := c.transcripts[docID]
	if !ok {
		c.mu.Unlock()
		c.logger.Warn("discarding process failure for removed document", "document_id", docID)
		return
	}
	kept := msgs[:0]
	for _, msg := range msgs {
		if msg.ID != placeholderID {
			kept = append(kept, msg)
		}
	}
	kept = append(kept, models.ChatMessage{
		ID:        uuid.New(),
		Sender:    models.SenderAssistant,
		Text:      "Error analyzing document: " + procErr.Error(),
		CreatedAt: time.Now().UTC(),
	})
	c.transcripts[docID] = kept
	if c.pending[docID] == placeholderID {
		delete(c.pending, docID)
	}
	snapshot := c.snapshotLocked(docID)
	c.mu.Unlock()
	c.broadcast(Event{DocumentID: docID, Transcript: snapshot})
	c.logger.Warn("process failed", "document_id", docID, "error", procErr)
}

func (c *Controller) snapshotLocked(docID uuid.UUID) []models.ChatMessage {
	msgs := c.transcripts[docID]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// Subscribe returns a channel of transcript change events plus an
// unsubscribe func. Slow subscribers miss events rather than blocking
// a settling turn.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	c.subMu.Lock()
	idx := c.nextSub
	c.nextSub++
	ch := make(chan Event, 16)
	c.subs[idx] = ch
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		if _, ok := c.subs[idx]; ok {
			delete(c.subs, idx)
			close(ch)
		}
		c.subMu.Unlock()
	}
}

func (c *Controller) broadcast(ev Event) {
	c.subMu.Lock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	c.subMu.Unlock()
}
