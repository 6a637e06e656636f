package credential

import (
	"strings"
	"testing"
)

func TestCoderDigestIsDeterministic(t *testing.T) {
	c, err := NewCoder([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCoder failed: %v", err)
	}

	first := c.Digest("VER1A2B3C")
	second := c.Digest("VER1A2B3C")
	if first != second {
		t.Fatal("expected equal codes to produce equal digests")
	}
	if len(first) != 64 || strings.ToLower(first) != first {
		t.Fatalf("expected lowercase hex sha256 digest, got %q", first)
	}
}

func TestCoderDigestDiffersByKey(t *testing.T) {
	a, err := NewCoder([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCoder failed: %v", err)
	}
	b, err := NewCoder([]byte("fedcba9876543210"))
	if err != nil {
		t.Fatalf("NewCoder failed: %v", err)
	}

	if a.Digest("VER1A2B3C") == b.Digest("VER1A2B3C") {
		t.Fatal("expected different keys to produce different digests")
	}
}

func TestCoderMatches(t *testing.T) {
	c, err := NewCoder([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCoder failed: %v", err)
	}

	digest := c.Digest("VER1A2B3C")
	if !c.Matches("VER1A2B3C", digest) {
		t.Fatal("expected code to match its own digest")
	}
	if c.Matches("VER1A2B3D", digest) {
		t.Fatal("expected different code to mismatch")
	}

	// A single flipped hex character must fail the comparison.
	flipped := []byte(digest)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	if c.Matches("VER1A2B3C", string(flipped)) {
		t.Fatal("expected flipped digest to mismatch")
	}

	if c.Matches("VER1A2B3C", "zz-not-hex") {
		t.Fatal("expected malformed digest to mismatch")
	}
}

func TestCoderRejectsShortKey(t *testing.T) {
	if _, err := NewCoder([]byte("short")); err == nil {
		t.Fatal("expected short key to be rejected")
	}
}

func TestCoderKeyIsCloned(t *testing.T) {
	key := []byte("0123456789abcdef")
	c, err := NewCoder(key)
	if err != nil {
		t.Fatalf("NewCoder failed: %v", err)
	}

	before := c.Digest("VER1A2B3C")
	key[0] = 'X'
	after := c.Digest("VER1A2B3C")

	if before != after {
		t.Fatal("expected coder to hold its own key copy")
	}
}

func TestEqualConstantTimeHelpers(t *testing.T) {
	if !Equal([]byte("abc"), []byte("abc")) {
		t.Fatal("expected equal slices to compare true")
	}
	if Equal([]byte("abc"), []byte("abd")) {
		t.Fatal("expected different slices to compare false")
	}
	if Equal([]byte("abc"), []byte("abcd")) {
		t.Fatal("expected different lengths to compare false")
	}
	if !EqualString("123456", "123456") {
		t.Fatal("expected equal strings to compare true")
	}
	if EqualString("123456", "123457") {
		t.Fatal("expected different strings to compare false")
	}
}
