package protection

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/privylex/privylex/internal/identity"
)

func testSigner(t *testing.T) identity.Signer {
	t.Helper()
	s, err := identity.NewTokenSigner("0xCaller", "secret")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	return s
}

func TestHTTPClient_Protect(t *testing.T) {
	var gotReq protectRequest
	var gotAddress, gotSignature string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/protect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAddress = r.Header.Get("X-Requester-Address")
		gotSignature = r.Header.Get("X-Requester-Signature")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(protectResponse{
			Address:        "0xABC",
			MultiaddrValue: "/p2p/QmContent",
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, testSigner(t))
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	var updates []StatusUpdate
	res, err := client.Protect(context.Background(), []byte("payload"), "Protected contract.pdf", func(s StatusUpdate) {
		updates = append(updates, s)
	})
	if err != nil {
		t.Fatalf("Protect: %v", err)
	}

	if res.ContentHandle != "0xABC" {
		t.Errorf("content handle = %q, want 0xABC", res.ContentHandle)
	}
	if res.ContentLocator != "/p2p/QmContent" {
		t.Errorf("content locator = %q", res.ContentLocator)
	}
	if gotReq.Name != "Protected contract.pdf" {
		t.Errorf("name = %q", gotReq.Name)
	}
	if decoded, _ := base64.StdEncoding.DecodeString(gotReq.Data); string(decoded) != "payload" {
		t.Errorf("payload not round-tripped: %q", gotReq.Data)
	}
	if gotAddress != "0xCaller" || gotSignature == "" {
		t.Errorf("request not signed: address=%q signature=%q", gotAddress, gotSignature)
	}
	if len(updates) == 0 || !updates[len(updates)-1].Done {
		t.Errorf("status updates missing terminal done: %+v", updates)
	}
}

func TestHTTPClient_ProtectNoHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(protectResponse{})
	}))
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, testSigner(t))
	if _, err := client.Protect(context.Background(), []byte("x"), "doc", nil); err == nil {
		t.Fatal("expected error when service returns no content handle")
	}
}

func TestHTTPClient_GrantAccess(t *testing.T) {
	var gotReq grantRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/grant-access" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, testSigner(t))
	if err := client.GrantAccess(context.Background(), "0xABC", "0xApp", "0xUser"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	if gotReq.ProtectedData != "0xABC" || gotReq.AuthorizedApp != "0xApp" || gotReq.AuthorizedUser != "0xUser" {
		t.Errorf("unexpected grant request: %+v", gotReq)
	}
}

func TestHTTPClient_GrantAccessServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "order not matchable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, testSigner(t))
	if err := client.GrantAccess(context.Background(), "0xABC", "0xApp", "0xUser"); err == nil {
		t.Fatal("expected error from 502 response")
	}
}

func TestHTTPClient_Process(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantResult []byte
		wantRef    string
	}{
		{
			name:       "payload returned",
			response:   `{"result":"` + base64.StdEncoding.EncodeToString([]byte("the answer")) + `"}`,
			wantResult: []byte("the answer"),
		},
		{
			name:       "empty payload is present but empty",
			response:   `{"result":""}`,
			wantResult: []byte{},
		},
		{
			name:     "task reference only",
			response: `{"taskId":"0xTask123"}`,
			wantRef:  "0xTask123",
		},
		{
			name:     "neither",
			response: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotReq processRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&gotReq)
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			client, _ := NewHTTPClient(srv.URL, testSigner(t))
			res, err := client.Process(context.Background(), ProcessRequest{
				ContentHandle:     "0xABC",
				AppAddress:        "0xApp",
				Args:              "What is the termination clause?",
				InputFileURLs:     []string{"https://g/ipfs/QmContent"},
				WorkerpoolAddress: "0xPool",
			})
			if err != nil {
				t.Fatalf("Process: %v", err)
			}

			if gotReq.Args != "What is the termination clause?" || gotReq.Workerpool != "0xPool" {
				t.Errorf("unexpected process request: %+v", gotReq)
			}
			if len(gotReq.InputFiles) != 1 {
				t.Errorf("input files not forwarded: %+v", gotReq.InputFiles)
			}

			if tt.wantResult == nil && res.Result != nil {
				t.Errorf("expected absent result, got %q", res.Result)
			}
			if tt.wantResult != nil {
				if res.Result == nil {
					t.Fatal("expected present result, got nil")
				}
				if string(res.Result) != string(tt.wantResult) {
					t.Errorf("result = %q, want %q", res.Result, tt.wantResult)
				}
			}
			if res.TaskRef != tt.wantRef {
				t.Errorf("task ref = %q, want %q", res.TaskRef, tt.wantRef)
			}
		})
	}
}
