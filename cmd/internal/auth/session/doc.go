// Package session implements Quill's invite-gated bearer sessions.
//
// A session is a time-boxed credential minted from a validated invite code.
// The bearer token is an opaque random string handed to the client exactly
// once; only its keyed digest is persisted. Sessions end in one of two
// terminal states: Expired (passive, by time comparison at verification) or
// Revoked (explicit, via rotation or logout). Verifiers cannot tell the two
// apart; every failure collapses to "no session".
package session
