// Package goMFA provides a multi-factor credential issuance and verification
// engine with Redis-backed single-use sessions, attempt budgets, TOTP/SMS/passkey
// factor dispatch, and HMAC-verified provider webhooks.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goMFA is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (Outcome, StartResult, MetricsSnapshot, etc.). Host integrations plug in
// through small interfaces: [TOTPSecretProvider] for authenticator secrets,
// [PasskeyVerifier] for WebAuthn assertion checking, [ChallengeSender] for SMS
// delivery, and [SignatureVerifier] for inbound webhook authentication.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or record encodings in its public API.
//   - Decide security questions with errors: invalid codes, expired sessions, and
//     exhausted budgets are [Outcome] values; errors mean infrastructure failed.
//   - Deliver SMS messages or validate WebAuthn signatures itself; both stay behind
//     the collaborator interfaces.
//
// # Concurrency contract
//
// Per-session state transitions are serialized through Redis optimistic
// transactions, never in-process locks. Two concurrent submissions of the same
// code against one session produce exactly one Verified outcome.
package goMFA
