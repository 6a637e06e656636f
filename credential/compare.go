package credential

import "crypto/subtle"

// Equal compares two byte slices in constant time. Length mismatch returns
// false immediately; content comparison leaks no timing signal.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// EqualString describes the equal string operation and its observable behavior.
//
// EqualString may return an error when input validation, dependency calls, or security checks fail.
// EqualString does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func EqualString(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
