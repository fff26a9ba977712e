// Package signature provides HMAC-SHA256 webhook payload signing and
// verification.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Version is the signature scheme version sent in the X-Signature-Version
// header alongside every signed delivery.
const Version = "v1"

// Signer computes HMAC-SHA256 signatures for webhook payloads.
type Signer struct{}

// NewSigner returns a new Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign generates the HMAC-SHA256 signature for the given payload keyed by
// secret. Returns a signature in the format "sha256=<lowercase hex>".
func (s *Signer) Sign(payload []byte, secret string) string {
	return Sign(payload, secret)
}

// Sign generates the HMAC-SHA256 signature for the given payload keyed by
// secret. Returns a signature in the format "sha256=<lowercase hex>".
// The MAC is computed over the exact serialized payload bytes; signing the
// same bytes with the same secret always yields the same signature.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
