package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Credential is an opaque provider API key. Its secret only leaves through Secret().
type Credential struct {
	index  int
	secret string
}

// NewCredential wraps a secret at a fixed position of the pool.
func NewCredential(index int, secret string) Credential {
	return Credential{index: index, secret: secret}
}

// Index is the credential's position in the pool's trial order.
func (c Credential) Index() int { return c.index }

// Secret returns the raw key for the outbound request only.
func (c Credential) Secret() string { return c.secret }

// Fingerprint is a short, non-reversible id usable as a rate-limit key.
func (c Credential) Fingerprint() string {
	sum := sha256.Sum256([]byte(c.secret))
	return hex.EncodeToString(sum[:6])
}

func (c Credential) String() string { return fmt.Sprintf("credential#%d", c.index) }

// GoString keeps %#v from printing the secret.
func (c Credential) GoString() string { return c.String() }

// LogValue keeps slog from printing the secret.
func (c Credential) LogValue() slog.Value { return slog.StringValue(c.String()) }
