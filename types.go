package goMFA

import (
	"context"
	"time"
)

// FactorKind identifies the second factor bound to an MFA session.
//
//	Docs: docs/factors.md
type FactorKind uint8

const (
	// FactorTOTP is an exported constant or variable used by the verification engine.
	FactorTOTP FactorKind = iota
	// FactorSMSOTP is an exported constant or variable used by the verification engine.
	FactorSMSOTP
	// FactorPasskey is an exported constant or variable used by the verification engine.
	FactorPasskey
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (f FactorKind) String() string {
	switch f {
	case FactorTOTP:
		return "totp"
	case FactorSMSOTP:
		return "sms_otp"
	case FactorPasskey:
		return "passkey"
	default:
		return "unknown"
	}
}

func validFactor(f FactorKind) bool {
	switch f {
	case FactorTOTP, FactorSMSOTP, FactorPasskey:
		return true
	default:
		return false
	}
}

// SessionStatus represents the lifecycle state of an MFA session record.
//
//	Docs: docs/session.md
type SessionStatus uint8

const (
	// SessionPending is an exported constant or variable used by the verification engine.
	SessionPending SessionStatus = iota
	// SessionVerified is an exported constant or variable used by the verification engine.
	SessionVerified
	// SessionFailed is an exported constant or variable used by the verification engine.
	SessionFailed
	// SessionExpired is an exported constant or variable used by the verification engine.
	SessionExpired
)

// Outcome is the deliberate, non-exceptional result of a verification attempt.
// Outcomes are security decisions: they are returned, never wrapped in errors.
// Errors returned alongside an Outcome always mean infrastructure failed.
//
//	Docs: docs/engine.md
type Outcome uint8

const (
	// OutcomeVerified is an exported constant or variable used by the verification engine.
	OutcomeVerified Outcome = iota
	// OutcomeInvalidCode is an exported constant or variable used by the verification engine.
	OutcomeInvalidCode
	// OutcomeSessionExpired is an exported constant or variable used by the verification engine.
	OutcomeSessionExpired
	// OutcomeSessionNotFound is an exported constant or variable used by the verification engine.
	OutcomeSessionNotFound
	// OutcomeAttemptsExhausted is an exported constant or variable used by the verification engine.
	OutcomeAttemptsExhausted
	// OutcomeSessionConcluded is an exported constant or variable used by the verification engine.
	OutcomeSessionConcluded
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeSessionExpired:
		return "session_expired"
	case OutcomeSessionNotFound:
		return "session_not_found"
	case OutcomeAttemptsExhausted:
		return "attempts_exhausted"
	case OutcomeSessionConcluded:
		return "session_concluded"
	default:
		return "unknown"
	}
}

// PublicCode collapses internal outcomes into the uniform user-facing shape.
// Wrong code, unknown session, expired session, and concluded session are
// indistinguishable externally; only attempts-exhausted is surfaced separately
// so a client can prompt for a fresh challenge.
//
//	Docs: docs/engine.md
func (o Outcome) PublicCode() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeAttemptsExhausted:
		return "attempts_exhausted"
	default:
		return "verification_failed"
	}
}

// StartResult is returned by [Engine.StartSession]. Code carries the plaintext
// SMS OTP only when no [ChallengeSender] is configured; with a sender wired,
// delivery happens inside StartSession and Code stays empty.
type StartResult struct {
	Handle    string
	Factor    FactorKind
	Code      string
	ExpiresAt time.Time
}

// VerifyResult is returned by [Engine.VerifyCodeWithProof] and
// [Engine.VerifyPasskeyWithProof]. Proof is set only when the outcome is
// [OutcomeVerified] and proof issuance is enabled.
type VerifyResult struct {
	Outcome Outcome
	Proof   string
}

// TOTPRecord is retrieved from [TOTPSecretProvider.GetTOTPSecret]. It carries
// the shared secret, the enabled flag, and the last-used HOTP counter for
// replay protection.
type TOTPRecord struct {
	Secret          []byte
	Enabled         bool
	LastUsedCounter int64
}

// TOTPSecretProvider is implemented by the host to expose per-principal TOTP
// enrollment state. The engine never stores authenticator secrets itself.
//
//	Docs: docs/factors.md
type TOTPSecretProvider interface {
	GetTOTPSecret(ctx context.Context, principalID string) (*TOTPRecord, error)
	UpdateTOTPLastUsedCounter(ctx context.Context, principalID string, counter int64) error
}

// PasskeyAssertion is the client-submitted WebAuthn assertion structure passed
// through to the external verifier untouched.
type PasskeyAssertion struct {
	CredentialID      []byte
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Signature         []byte
	UserHandle        []byte
}

// PasskeyVerifier validates a WebAuthn assertion against the stored credential
// public key and challenge. Cryptographic verification internals live entirely
// behind this interface.
//
//	Docs: docs/factors.md
type PasskeyVerifier interface {
	VerifyAssertion(ctx context.Context, principalID string, assertion PasskeyAssertion) (bool, error)
}

// ChallengeSender delivers an issued SMS OTP to the principal. Carrier
// integration is the host's concern.
type ChallengeSender interface {
	SendCode(ctx context.Context, principalID, code string) error
}

// DeliveryReceipt is the decoded body of an inbound provider webhook.
type DeliveryReceipt struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
}

// ReceiptResult is returned by [Engine.HandleDeliveryReceipt]. A rejected
// signature yields Accepted=false with a nil error; errors are reserved for
// backend failures.
type ReceiptResult struct {
	Accepted    bool
	PrincipalID string
	Receipt     *DeliveryReceipt
}
