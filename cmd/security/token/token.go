package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// MasterKeyEnv is the env var name for the master secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	MasterKeyEnv = "QUILL_MASTER_KEY"

	// MinMasterKeyBytes is the minimum accepted master key length.
	MinMasterKeyBytes = 32
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// DigestEqual compares two fixed-length digests in constant time.
//
// Both sides must already be digests (hex or raw); comparing raw secrets of
// attacker-controlled length is exactly what this helper exists to avoid.
func DigestEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return hmac.Equal([]byte(a), []byte(b))
}

// NewOpaqueToken returns a URL-safe random bearer secret of nBytes entropy.
func NewOpaqueToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Keys holds the per-purpose keys derived from the master secret.
type Keys struct {
	// InviteHash keys the digest stored for invite-code secrets.
	InviteHash []byte
	// SessionHash keys the digest stored for session bearer tokens.
	SessionHash []byte
	// ShareSign signs stateless conversation share tokens.
	ShareSign []byte
}

// DeriveKeys expands a master secret into independent per-purpose keys
// using HKDF-SHA256 with fixed info strings.
func DeriveKeys(master []byte) (Keys, error) {
	if len(master) == 0 {
		return Keys{}, ErrMasterKeyMissing
	}
	if len(master) < MinMasterKeyBytes {
		return Keys{}, ErrMasterKeyTooShort
	}

	expand := func(info string) ([]byte, error) {
		r := hkdf.New(sha256.New, master, nil, []byte(info))
		k := make([]byte, 32)
		if _, err := io.ReadFull(r, k); err != nil {
			return nil, err
		}
		return k, nil
	}

	var (
		keys Keys
		err  error
	)
	if keys.InviteHash, err = expand("quill/invite-code-hash/v1"); err != nil {
		return Keys{}, err
	}
	if keys.SessionHash, err = expand("quill/session-token-hash/v1"); err != nil {
		return Keys{}, err
	}
	if keys.ShareSign, err = expand("quill/share-sign/v1"); err != nil {
		return Keys{}, err
	}
	return keys, nil
}

// KeysFromEnv derives the per-purpose keys from QUILL_MASTER_KEY.
func KeysFromEnv() (Keys, error) {
	raw := strings.TrimSpace(os.Getenv(MasterKeyEnv))
	if raw == "" {
		return Keys{}, ErrMasterKeyMissing
	}
	return DeriveKeys([]byte(raw))
}
