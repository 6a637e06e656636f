// Package middleware exposes HTTP middleware adapters that gate routes behind a
// valid verification proof issued by goMFA.Engine.
//
// # Guards
//
//   - [RequireProof] — parses and validates the bearer proof token.
//   - [RequireProofForPrincipal] — additionally pins the proof to a principal
//     resolved from the request.
//
// Each guard reads the Authorization header, calls Engine.ValidateProof, and
// injects the parsed claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// verification logic itself — all decisions are delegated to Engine.ValidateProof.
//
// # What this package must NOT do
//
//   - Parse or create proof tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.ValidateProof.
package middleware
