package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const lookupCodeHexDigits = 6

// NewOTP draws a numeric one-time code uniformly from the full d-digit range
// [10^(d-1), 10^d-1]. No leading zeros, every value equally likely.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	low := int64(1)
	for i := 1; i < digits; i++ {
		low *= 10
	}
	span := low*10 - low

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", err
	}

	otp := fmt.Sprintf("%d", low+n.Int64())
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// NewLookupCode generates a short human-shareable verification code of the
// form VER followed by six uppercase hex digits.
func NewLookupCode() (string, error) {
	raw := make([]byte, lookupCodeHexDigits/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "VER" + strings.ToUpper(hex.EncodeToString(raw)), nil
}
