package goMFA

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the verification engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrFactorInvalid is an exported constant or variable used by the verification engine.
	ErrFactorInvalid = errors.New("unsupported factor kind")
	// ErrPrincipalInvalid is an exported constant or variable used by the verification engine.
	ErrPrincipalInvalid = errors.New("invalid principal id")
	// ErrIssuanceRateLimited is an exported constant or variable used by the verification engine.
	ErrIssuanceRateLimited = errors.New("challenge issuance rate limited")
	// ErrVerifyRateLimited is an exported constant or variable used by the verification engine.
	ErrVerifyRateLimited = errors.New("verification rate limited")
	// ErrSessionUnavailable is an exported constant or variable used by the verification engine.
	ErrSessionUnavailable = errors.New("mfa session backend unavailable")
	// ErrCodeUnavailable is an exported constant or variable used by the verification engine.
	ErrCodeUnavailable = errors.New("verification code backend unavailable")
	// ErrVerificationCodeInvalid is an exported constant or variable used by the verification engine.
	ErrVerificationCodeInvalid = errors.New("verification code invalid")
	// ErrChallengeDeliveryFailed is an exported constant or variable used by the verification engine.
	ErrChallengeDeliveryFailed = errors.New("challenge delivery failed")
	// ErrTOTPNotConfigured is an exported constant or variable used by the verification engine.
	ErrTOTPNotConfigured = errors.New("totp not configured for principal")
	// ErrTOTPUnavailable is an exported constant or variable used by the verification engine.
	ErrTOTPUnavailable = errors.New("totp secret backend unavailable")
	// ErrPasskeyUnavailable is an exported constant or variable used by the verification engine.
	ErrPasskeyUnavailable = errors.New("passkey verifier unavailable")
	// ErrWebhookPayloadInvalid is an exported constant or variable used by the verification engine.
	ErrWebhookPayloadInvalid = errors.New("webhook payload invalid")
	// ErrProofDisabled is an exported constant or variable used by the verification engine.
	ErrProofDisabled = errors.New("verification proof issuance disabled")
)
