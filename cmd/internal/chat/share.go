package chat

import (
	"strconv"
	"strings"
	"time"

	"quill/cmd/security/token"
)

// shareVersion tags the share-token format so it can evolve.
const shareVersion = "v1"

// Sharer mints and verifies stateless conversation share tokens.
//
// A share token is a capability, not a row: "v1.<expUnix>.<sig>" where sig
// is a keyed digest over the chat ID and the expiry. Anyone holding a valid
// token reads the conversation's history without a session; there is nothing
// to revoke server-side short of rotating the signing key.
type Sharer struct {
	key []byte
	ttl time.Duration
}

// NewSharer constructs a Sharer with the given signing key and token TTL.
func NewSharer(key []byte, ttl time.Duration) *Sharer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sharer{key: key, ttl: ttl}
}

// Mint returns a share token for chatID expiring after the configured TTL.
func (s *Sharer) Mint(chatID string, now time.Time) string {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	exp := now.Add(s.ttl).Unix()
	return shareVersion + "." + strconv.FormatInt(exp, 10) + "." + s.sign(chatID, exp)
}

// Verify reports whether tok is a currently-valid share token for chatID.
// Comparison is over fixed-length digests, never raw token material.
func (s *Sharer) Verify(chatID, tok string, now time.Time) bool {
	chatID = strings.TrimSpace(chatID)
	tok = strings.TrimSpace(tok)
	if chatID == "" || tok == "" {
		return false
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 || parts[0] != shareVersion {
		return false
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || exp <= now.Unix() {
		return false
	}

	return token.DigestEqual(parts[2], s.sign(chatID, exp))
}

func (s *Sharer) sign(chatID string, exp int64) string {
	payload := chatID + "\n" + strconv.FormatInt(exp, 10)
	return token.HashHMACSHA256Hex(payload, s.key)
}
