// Package token provides secret hashing primitives for Quill.
//
// It is the single source of truth for invite-code and session-token hashing
// behavior, and for the key material used to sign share tokens.
//
// Design goals:
// - Secrets are never stored or compared in plaintext; only keyed digests.
// - Stable 64-char hex output for storage and constant-time comparison.
// - One master secret expanded via HKDF into independent per-purpose keys,
//   so a leak of one derived key never exposes the others.
//
// Environment:
// - QUILL_MASTER_KEY: master secret for key derivation (>= 32 bytes).
package token
