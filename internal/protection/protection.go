package protection

import (
	"context"
)

// StatusUpdate reports progress of a long-running protection call
// (encryption, registration, order matching). Mirrors the service's
// status callback stream.
type StatusUpdate struct {
	Title string
	Done  bool
}

// StatusFunc receives status updates; may be nil.
type StatusFunc func(StatusUpdate)

// ProtectResult identifies the protected artifact held by the service.
type ProtectResult struct {
	// ContentHandle is the opaque address of the protected data.
	ContentHandle string
	// ContentLocator is an optional multiaddr (".../p2p/<cid>") from
	// which the underlying bytes can be fetched via a gateway.
	ContentLocator string
}

// ProcessRequest describes a confidential computation to run against
// a protected document.
type ProcessRequest struct {
	ContentHandle     string
	AppAddress        string
	Args              string
	InputFileURLs     []string
	WorkerpoolAddress string
}

// ProcessResult carries either an immediate payload or, when the
// service has only scheduled the task, a task reference. A nil Result
// means the service returned no payload at all; a non-nil empty slice
// means it returned an empty one.
type ProcessResult struct {
	Result  []byte
	TaskRef string
}

// Empty reports whether the service returned neither a payload nor a
// task reference.
func (r *ProcessResult) Empty() bool {
	return r == nil || (r.Result == nil && r.TaskRef == "")
}

// Client is the adapter boundary to the external confidential-computing
// service. The actual encryption, enclave execution, and result
// computation happen remotely; this interface only drives them.
type Client interface {
	Protect(ctx context.Context, payload []byte, name string, onStatus StatusFunc) (*ProtectResult, error)
	GrantAccess(ctx context.Context, contentHandle, appAddress, granteeIdentity string) error
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
}
