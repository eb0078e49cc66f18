package protection

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/privylex/privylex/internal/identity"
)

// HTTPClient talks to the confidential-computing service over its REST
// surface. Every request is signed with the injected identity; the
// service rejects unsigned calls, so a nil signer is a local
// precondition failure rather than something to retry.
type HTTPClient struct {
	baseURL    string
	signer     identity.Signer
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, signer identity.Signer) (*HTTPClient, error) {
	if signer == nil {
		return nil, errors.New("protection client requires a signer")
	}
	return &HTTPClient{
		baseURL:    baseURL,
		signer:     signer,
		// Protect and process runs take multiple minutes; the service
		// owns the real timeout.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

type protectRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // base64 payload
}

type protectResponse struct {
	Address        string `json:"address"`
	MultiaddrValue string `json:"multiaddr,omitempty"`
	Status         string `json:"status,omitempty"`
}

func (c *HTTPClient) Protect(ctx context.Context, payload []byte, name string, onStatus StatusFunc) (*ProtectResult, error) {
	notify(onStatus, "Encrypting document", false)

	body, err := json.Marshal(protectRequest{
		Name: name,
		Data: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal protect request: %w", err)
	}

	var resp protectResponse
	if err := c.post(ctx, "/v1/protect", body, &resp); err != nil {
		return nil, fmt.Errorf("protect %q: %w", name, err)
	}
	if resp.Address == "" {
		return nil, fmt.Errorf("protect %q: service returned no content handle", name)
	}

	notify(onStatus, "Document protected", true)
	return &ProtectResult{
		ContentHandle:  resp.Address,
		ContentLocator: resp.MultiaddrValue,
	}, nil
}

type grantRequest struct {
	ProtectedData    string `json:"protectedData"`
	AuthorizedApp    string `json:"authorizedApp"`
	AuthorizedUser   string `json:"authorizedUser"`
	NumberOfAccesses int    `json:"numberOfAccess"`
}

func (c *HTTPClient) GrantAccess(ctx context.Context, contentHandle, appAddress, granteeIdentity string) error {
	body, err := json.Marshal(grantRequest{
		ProtectedData:    contentHandle,
		AuthorizedApp:    appAddress,
		AuthorizedUser:   granteeIdentity,
		NumberOfAccesses: 1,
	})
	if err != nil {
		return fmt.Errorf("marshal grant request: %w", err)
	}

	if err := c.post(ctx, "/v1/grant-access", body, nil); err != nil {
		return fmt.Errorf("grant access to %s: %w", contentHandle, err)
	}
	return nil
}

type processRequest struct {
	ProtectedData string   `json:"protectedData"`
	App           string   `json:"app"`
	Args          string   `json:"args"`
	InputFiles    []string `json:"inputFiles,omitempty"`
	Workerpool    string   `json:"workerpool,omitempty"`
}

type processResponse struct {
	// Result is a pointer so an absent field can be told apart from an
	// empty task output; the two normalize differently downstream.
	Result  *string `json:"result"`
	TaskID  string  `json:"taskId,omitempty"`
	Status  string  `json:"status,omitempty"`
	Message string  `json:"message,omitempty"`
}

func (c *HTTPClient) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	body, err := json.Marshal(processRequest{
		ProtectedData: req.ContentHandle,
		App:           req.AppAddress,
		Args:          req.Args,
		InputFiles:    req.InputFileURLs,
		Workerpool:    req.WorkerpoolAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal process request: %w", err)
	}

	var resp processResponse
	if err := c.post(ctx, "/v1/process", body, &resp); err != nil {
		return nil, fmt.Errorf("process %s: %w", req.ContentHandle, err)
	}

	out := &ProcessResult{TaskRef: resp.TaskID}
	if resp.Result != nil {
		raw, err := base64.StdEncoding.DecodeString(*resp.Result)
		if err != nil {
			return nil, fmt.Errorf("decode process result: %w", err)
		}
		if raw == nil {
			raw = []byte{}
		}
		out.Result = raw
	}
	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body []byte, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	sig, err := c.signer.SignMessage(ctx, body)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requester-Address", c.signer.Address())
	req.Header.Set("X-Requester-Signature", sig)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func notify(fn StatusFunc, title string, done bool) {
	if fn != nil {
		fn(StatusUpdate{Title: title, Done: done})
	}
}
