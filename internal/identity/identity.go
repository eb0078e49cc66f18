package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Signer is the authenticated capability required for every call to
// the protection service. It is injected explicitly; nothing in the
// core reads an ambient wallet or provider.
type Signer interface {
	// Address returns the caller's on-chain identity.
	Address() string
	// SignMessage produces a signature the protection service can
	// verify against Address.
	SignMessage(ctx context.Context, msg []byte) (string, error)
}

// TokenSigner authenticates with a shared secret; the service treats
// the HMAC as an opaque bearer signature.
type TokenSigner struct {
	address string
	secret  []byte
}

func NewTokenSigner(address, secret string) (*TokenSigner, error) {
	if address == "" {
		return nil, errors.New("signer address required")
	}
	if secret == "" {
		return nil, errors.New("signer secret required")
	}
	return &TokenSigner{address: address, secret: []byte(secret)}, nil
}

func (s *TokenSigner) Address() string { return s.address }

func (s *TokenSigner) SignMessage(_ context.Context, msg []byte) (string, error) {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
