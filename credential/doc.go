// Package credential implements the hashing primitives behind one-time code
// storage: slow salted hashing for verification secrets, keyed deterministic
// digests for lookup keys, and constant-time equality.
//
// # Choosing between Hasher and Coder
//
// [Hasher] is for codes that are verified against a known session: bcrypt with
// a per-hash salt, so equal codes hash differently and offline cracking is
// expensive. [Coder] is for codes that must be found by value: HMAC-SHA256
// under a server-side key, so equal codes map to equal digests and Redis can
// resolve them with a point lookup while the plaintext never leaves the
// process.
//
// # Architecture boundaries
//
// This package owns transformation and comparison only. TTLs, attempt budgets,
// and storage are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve codes — callers supply plaintext and receive hashes.
//   - Import any other goMFA package.
//   - Log plaintext codes or digest keys at runtime.
package credential
