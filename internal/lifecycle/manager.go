package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/privylex/privylex/internal/models"
	"github.com/privylex/privylex/internal/protection"
)

// Gate violations. Callers are expected to have disabled the operation
// via observable state; these reject without touching the document.
var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidState = errors.New("operation not allowed in current state")
	ErrCallInFlight = errors.New("a call is already in flight for this document")
	ErrNoPayload    = errors.New("document payload no longer available")
	ErrEmptyQuery   = errors.New("query must not be empty")
)

// Options binds the manager to one compute application and workerpool.
type Options struct {
	AppAddress        string
	WorkerpoolAddress string
	GatewayURL        string
}

// Manager owns the per-document lifecycle state machine. All state
// transitions happen here: synchronously into the in-flight states,
// and from completion handlers once the external call settles. Entries
// are replaced wholesale by id so a completion for a removed document
// can be detected and dropped.
type Manager struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Document

	client protection.Client
	opts   Options
	logger *slog.Logger

	subMu   sync.Mutex
	subs    map[int]chan models.Document
	nextSub int
}

func NewManager(client protection.Client, opts Options) *Manager {
	return &Manager{
		docs:   make(map[uuid.UUID]models.Document),
		client: client,
		opts:   opts,
		logger: slog.Default(),
		subs:   make(map[int]chan models.Document),
	}
}

// Add registers a freshly ingested document.
func (m *Manager) Add(doc models.Document) {
	m.mu.Lock()
	m.docs[doc.ID] = doc
	m.mu.Unlock()
}

// Get returns a snapshot of the document.
func (m *Manager) Get(id uuid.UUID) (models.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	return doc, ok
}

// List returns all documents ordered by upload time.
func (m *Manager) List() []models.Document {
	m.mu.Lock()
	docs := make([]models.Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	m.mu.Unlock()

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].ID.String() < docs[j].ID.String()
		}
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
	return docs
}

// Remove drops the document from the working set. Any call still in
// flight for it runs to completion; its result is discarded by the
// completion handler's existence check.
func (m *Manager) Remove(id uuid.UUID) bool {
	m.mu.Lock()
	_, ok := m.docs[id]
	delete(m.docs, id)
	m.mu.Unlock()
	return ok
}

// Protect hands the document's payload to the external service for
// encryption and registration. The document moves to protecting
// before the call is issued; the transition out of it is applied by
// the completion handler. A second Protect while one is outstanding
// is rejected, not queued.
func (m *Manager) Protect(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	doc, ok := m.docs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if doc.State.InFlight() {
		m.mu.Unlock()
		return ErrCallInFlight
	}
	if doc.State != models.StateUploaded && doc.State != models.StateProtectionFailed {
		m.mu.Unlock()
		return ErrInvalidState
	}
	if len(doc.Payload) == 0 {
		m.mu.Unlock()
		return ErrNoPayload
	}

	payload := doc.Payload
	name := doc.Name
	doc.State = models.StateProtecting
	doc.LastError = ""
	m.docs[id] = doc
	m.mu.Unlock()
	m.broadcast(doc)

	// The call is detached from the caller's context: once issued it
	// runs to completion regardless of UI navigation.
	go m.runProtect(context.Background(), id, payload, name)
	return nil
}

func (m *Manager) runProtect(ctx context.Context, id uuid.UUID, payload []byte, name string) {
	res, err := m.client.Protect(ctx, payload, fmt.Sprintf("Protected %s", name), func(s protection.StatusUpdate) {
		m.logger.Info("protect status", "document_id", id, "title", s.Title, "done", s.Done)
	})

	m.mu.Lock()
	doc, ok := m.docs[id]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("discarding protect result for removed document", "document_id", id)
		return
	}
	if err != nil {
		doc.State = models.StateProtectionFailed
		doc.LastError = err.Error()
		m.docs[id] = doc
		m.mu.Unlock()
		m.broadcast(doc)
		m.logger.Warn("protect failed", "document_id", id, "error", err)
		return
	}

	doc.State = models.StateProtected
	doc.ProtectedAddress = res.ContentHandle
	doc.ContentLocator = res.ContentLocator
	// The service now holds the canonical protected artifact.
	doc.Payload = nil
	doc.LastError = ""
	m.docs[id] = doc
	m.mu.Unlock()
	m.broadcast(doc)
	m.logger.Info("document protected", "document_id", id, "address", res.ContentHandle)
}

// Grant authorizes the configured compute application and the given
// identity to use the protected document.
func (m *Manager) Grant(ctx context.Context, id uuid.UUID, granteeIdentity string) error {
	m.mu.Lock()
	doc, ok := m.docs[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if doc.State.InFlight() {
		m.mu.Unlock()
		return ErrCallInFlight
	}
	if doc.State != models.StateProtected && doc.State != models.StateGrantFailed {
		m.mu.Unlock()
		return ErrInvalidState
	}
	if doc.ProtectedAddress == "" {
		m.mu.Unlock()
		return ErrInvalidState
	}

	handle := doc.ProtectedAddress
	doc.State = models.StateGrantingAccess
	doc.LastError = ""
	m.docs[id] = doc
	m.mu.Unlock()
	m.broadcast(doc)

	go m.runGrant(context.Background(), id, handle, granteeIdentity)
	return nil
}

func (m *Manager) runGrant(ctx context.Context, id uuid.UUID, handle, granteeIdentity string) {
	err := m.client.GrantAccess(ctx, handle, m.opts.AppAddress, granteeIdentity)

	m.mu.Lock()
	doc, ok := m.docs[id]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("discarding grant result for removed document", "document_id", id)
		return
	}
	if err != nil {
		doc.State = models.StateGrantFailed
		doc.LastError = err.Error()
		m.docs[id] = doc
		m.mu.Unlock()
		m.broadcast(doc)
		m.logger.Warn("grant failed", "document_id", id, "error", err)
		return
	}

	doc.State = models.StateAccessGranted
	doc.LastError = ""
	m.docs[id] = doc
	m.mu.Unlock()
	m.broadcast(doc)
	m.logger.Info("access granted", "document_id", id, "app", m.opts.AppAddress)
}

// Process runs a confidential query against the protected document.
// Access, once granted, is not consumed by processing, so the document
// state is left untouched. The call blocks until the service settles;
// callers that need asynchrony run it from their own goroutine.
func (m *Manager) Process(ctx context.Context, id uuid.UUID, query string) (*protection.ProcessResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	m.mu.Lock()
	doc, ok := m.docs[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if doc.State != models.StateAccessGranted {
		return nil, ErrInvalidState
	}

	req := protection.ProcessRequest{
		ContentHandle:     doc.ProtectedAddress,
		AppAddress:        m.opts.AppAddress,
		Args:              query,
		WorkerpoolAddress: m.opts.WorkerpoolAddress,
	}
	if doc.ContentLocator != "" {
		url, err := protection.FetchURL(doc.ContentLocator, m.opts.GatewayURL)
		if err != nil {
			m.logger.Warn("skipping unusable content locator", "document_id", id, "error", err)
		} else {
			req.InputFileURLs = []string{url}
		}
	}

	res, err := m.client.Process(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("process document %s: %w", id, err)
	}
	return res, nil
}

// Subscribe returns a channel of document snapshots emitted on every
// state transition, plus a cancel func. Slow subscribers miss updates
// rather than blocking transitions.
func (m *Manager) Subscribe() (<-chan models.Document, func()) {
	m.subMu.Lock()
	idx := m.nextSub
	m.nextSub++
	ch := make(chan models.Document, 16)
	m.subs[idx] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		if _, ok := m.subs[idx]; ok {
			delete(m.subs, idx)
			close(ch)
		}
		m.subMu.Unlock()
	}
}

func (m *Manager) broadcast(doc models.Document) {
	// Snapshots carry no payload bytes.
	doc.Payload = nil
	m.subMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- doc:
		default:
		}
	}
	m.subMu.Unlock()
}
