// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for security-sensitive verification workflows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - avi: — verification attempts per-IP
//
// # What this package must NOT do
//
//   - Implement session attempt budgets (those live on the session record).
//   - Be imported outside the goMFA module.
package rate
