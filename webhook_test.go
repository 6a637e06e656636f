package goMFA

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"testing"
)

func signPayload(key, payload []byte) string {
	mac := hmac.New(sha1.New, key)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHMACVerifierAcceptsValidSignature(t *testing.T) {
	key := []byte("abc")
	payload := []byte(`{"message_id":"m1","status":"delivered"}`)

	v := NewHMACVerifier(key)
	if !v.Verify(payload, signPayload(key, payload)) {
		t.Fatal("expected valid signature to be accepted")
	}
}

func TestHMACVerifierRejectsTamperedPayload(t *testing.T) {
	key := []byte("abc")
	payload := []byte(`{"message_id":"m1","status":"delivered"}`)
	signature := signPayload(key, payload)

	tampered := append([]byte{}, payload...)
	tampered[0] ^= 0x01

	v := NewHMACVerifier(key)
	if v.Verify(tampered, signature) {
		t.Fatal("expected tampered payload to be rejected")
	}
}

func TestHMACVerifierRejectsFlippedSignatureBit(t *testing.T) {
	key := []byte("abc")
	payload := []byte(`{"message_id":"m1","status":"delivered"}`)

	mac := hmac.New(sha1.New, key)
	mac.Write(payload)
	sum := mac.Sum(nil)

	v := NewHMACVerifier(key)
	for i := range sum {
		flipped := append([]byte{}, sum...)
		flipped[i] ^= 0x01
		if v.Verify(payload, base64.StdEncoding.EncodeToString(flipped)) {
			t.Fatalf("expected signature with bit flipped in byte %d to be rejected", i)
		}
	}
}

func TestHMACVerifierRejectsWrongKey(t *testing.T) {
	payload := []byte("payload")
	signature := signPayload([]byte("key-a"), payload)

	v := NewHMACVerifier([]byte("key-b"))
	if v.Verify(payload, signature) {
		t.Fatal("expected signature under another key to be rejected")
	}
}

func TestHMACVerifierRejectsMalformedSignature(t *testing.T) {
	v := NewHMACVerifier([]byte("abc"))
	if v.Verify([]byte("payload"), "not-base64!!") {
		t.Fatal("expected malformed base64 signature to be rejected")
	}
	if v.Verify([]byte("payload"), "") {
		t.Fatal("expected empty signature to be rejected")
	}
}

func TestHMACVerifierKeyIsCloned(t *testing.T) {
	key := []byte("mutable-key-123")
	payload := []byte("payload")
	v := NewHMACVerifier(key)
	signature := signPayload([]byte("mutable-key-123"), payload)

	// Mutating the caller's slice must not affect the verifier.
	key[0] = 'X'

	if !v.Verify(payload, signature) {
		t.Fatal("expected verifier to hold its own key copy")
	}
}

func TestInsecureSkipVerifierAcceptsEverything(t *testing.T) {
	var v InsecureSkipVerifier
	if !v.Verify([]byte("anything"), "") {
		t.Fatal("expected InsecureSkipVerifier to accept any payload")
	}
}
