// Package proof issues and parses short-lived verification proof tokens that
// attest a principal passed a second-factor check, using configured signing
// keys and strict validation semantics.
package proof
