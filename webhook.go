package goMFA

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"log"
)

// SignatureVerifier authenticates inbound provider webhook payloads before
// the engine acts on them.
//
//	Docs: docs/webhooks.md
type SignatureVerifier interface {
	Verify(payload []byte, signature string) bool
}

// HMACVerifier defines a public type used by goMFA APIs.
//
// HMACVerifier instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HMACVerifier struct {
	key []byte
}

// NewHMACVerifier describes the new h m a c verifier operation and its observable behavior.
//
// NewHMACVerifier may return an error when input validation, dependency calls, or security checks fail.
// NewHMACVerifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHMACVerifier(key []byte) *HMACVerifier {
	return &HMACVerifier{key: cloneBytes(key)}
}

// Verify recomputes the HMAC-SHA1 of payload and compares it in constant time
// against the base64 signature supplied by the provider.
func (v *HMACVerifier) Verify(payload []byte, signature string) bool {
	if v == nil || len(v.key) == 0 {
		return false
	}

	provided, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha1.New, v.key)
	_, _ = mac.Write(payload)
	expected := mac.Sum(nil)

	return hmac.Equal(expected, provided)
}

// InsecureSkipVerifier accepts every payload. It exists for local development
// against providers that cannot sign callbacks; [Builder.Build] refuses it
// when Security.ProductionMode is set.
//
//	Docs: docs/webhooks.md
type InsecureSkipVerifier struct{}

// Verify describes the verify operation and its observable behavior.
//
// Verify may return an error when input validation, dependency calls, or security checks fail.
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (InsecureSkipVerifier) Verify(payload []byte, signature string) bool {
	log.Print("goMFA: webhook signature validation skipped")
	return true
}
