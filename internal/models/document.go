package models

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleState tracks a document's progress through the external
// protection service: protect, then grant access, then ready for
// confidential processing.
type LifecycleState string

const (
	StateUploaded         LifecycleState = "uploaded"
	StateProtecting       LifecycleState = "protecting"
	StateProtected        LifecycleState = "protected"
	StateGrantingAccess   LifecycleState = "granting_access"
	StateAccessGranted    LifecycleState = "access_granted"
	StateProtectionFailed LifecycleState = "protection_failed"
	StateGrantFailed      LifecycleState = "grant_failed"
)

// InFlight reports whether the state has an outstanding external call.
func (s LifecycleState) InFlight() bool {
	return s == StateProtecting || s == StateGrantingAccess
}

type Document struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`

	// Payload holds the raw bytes only until protection succeeds;
	// after that the external service owns the canonical copy.
	Payload []byte `json:"-"`

	State LifecycleState `json:"state"`

	// ProtectedAddress is the external service's content handle. Set
	// iff the document has passed through StateProtecting successfully.
	ProtectedAddress string `json:"protected_address,omitempty"`

	// ContentLocator is the service's multiaddr for the underlying
	// bytes. Only meaningful once ProtectedAddress is set.
	ContentLocator string `json:"content_locator,omitempty"`

	// LastError retains the most recent protect/grant failure for display.
	LastError string `json:"last_error,omitempty"`
}
