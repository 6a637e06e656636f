package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

const minDigestKeyBytes = 16

// Coder defines a public type used by goMFA APIs.
//
// Coder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Coder struct {
	key []byte
}

// NewCoder describes the new coder operation and its observable behavior.
//
// NewCoder may return an error when input validation, dependency calls, or security checks fail.
// NewCoder does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCoder(key []byte) (*Coder, error) {
	if len(key) < minDigestKeyBytes {
		return nil, errors.New("digest key must be >= 128 bits")
	}
	out := make([]byte, len(key))
	copy(out, key)
	return &Coder{key: out}, nil
}

// Digest computes the keyed HMAC-SHA256 of the code as lowercase hex.
// Deterministic on purpose: equal codes map to equal digests so the store can
// resolve a submitted code with a single key lookup.
func (c *Coder) Digest(code string) string {
	mac := hmac.New(sha256.New, c.key)
	_, _ = mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches describes the matches operation and its observable behavior.
//
// Matches may return an error when input validation, dependency calls, or security checks fail.
// Matches does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Coder) Matches(code, digest string) bool {
	expected, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, c.key)
	_, _ = mac.Write([]byte(code))
	return hmac.Equal(mac.Sum(nil), expected)
}
