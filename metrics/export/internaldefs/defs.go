package internaldefs

import (
	goMFA "github.com/MrEthical07/goMFA"
)

// CounterDef defines a public type used by goMFA APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goMFA.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goMFA APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goMFA.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the verification engine.
var CounterDefs = []CounterDef{
	{ID: goMFA.MetricSessionStarted, Name: "gomfa_session_started_total", Help: "Opened MFA sessions."},
	{ID: goMFA.MetricSessionStartRateLimited, Name: "gomfa_session_start_rate_limited_total", Help: "Rate-limited session starts."},
	{ID: goMFA.MetricChallengeDelivered, Name: "gomfa_challenge_delivered_total", Help: "Challenges handed to the delivery sender."},
	{ID: goMFA.MetricChallengeDeliveryFailed, Name: "gomfa_challenge_delivery_failed_total", Help: "Challenge deliveries reported failed by the sender."},
	{ID: goMFA.MetricVerifySuccess, Name: "gomfa_verify_success_total", Help: "Verification attempts concluded as verified."},
	{ID: goMFA.MetricVerifyFailure, Name: "gomfa_verify_failure_total", Help: "Verification attempts rejected for a wrong code."},
	{ID: goMFA.MetricVerifyExpired, Name: "gomfa_verify_expired_total", Help: "Verification attempts against expired sessions."},
	{ID: goMFA.MetricVerifyNotFound, Name: "gomfa_verify_not_found_total", Help: "Verification attempts against unknown sessions."},
	{ID: goMFA.MetricVerifyConcluded, Name: "gomfa_verify_concluded_total", Help: "Verification attempts against already-concluded sessions."},
	{ID: goMFA.MetricAttemptsExhausted, Name: "gomfa_attempts_exhausted_total", Help: "Sessions failed by exhausting the attempt budget."},
	{ID: goMFA.MetricTOTPSuccess, Name: "gomfa_totp_success_total", Help: "Successful TOTP verifications."},
	{ID: goMFA.MetricTOTPFailure, Name: "gomfa_totp_failure_total", Help: "Failed TOTP verifications."},
	{ID: goMFA.MetricTOTPReplayBlocked, Name: "gomfa_totp_replay_blocked_total", Help: "TOTP submissions rejected by replay protection."},
	{ID: goMFA.MetricPasskeySuccess, Name: "gomfa_passkey_success_total", Help: "Successful passkey assertions."},
	{ID: goMFA.MetricPasskeyFailure, Name: "gomfa_passkey_failure_total", Help: "Failed passkey assertions."},
	{ID: goMFA.MetricCodeIssued, Name: "gomfa_code_issued_total", Help: "Issued lookup codes."},
	{ID: goMFA.MetricCodeResolved, Name: "gomfa_code_resolved_total", Help: "Resolved lookup codes."},
	{ID: goMFA.MetricCodeResolveFailed, Name: "gomfa_code_resolve_failed_total", Help: "Lookup code resolutions that failed."},
	{ID: goMFA.MetricWebhookAccepted, Name: "gomfa_webhook_accepted_total", Help: "Webhook payloads with valid signatures."},
	{ID: goMFA.MetricWebhookRejected, Name: "gomfa_webhook_rejected_total", Help: "Webhook payloads rejected at the signature check."},
	{ID: goMFA.MetricProofIssued, Name: "gomfa_proof_issued_total", Help: "Issued verification proofs."},
	{ID: goMFA.MetricRateLimitHit, Name: "gomfa_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

// HistogramDefs is an exported constant or variable used by the verification engine.
var HistogramDefs = []HistogramDef{
	{ID: goMFA.MetricVerifyLatency, Name: "gomfa_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the verification engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the verification engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
