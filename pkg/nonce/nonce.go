// Package nonce issues and consumes one-time wallet challenge nonces.
//
// A nonce proves freshness of a signature: the wallet signs a message that
// embeds it, and verification destroys it so a captured signature cannot be
// replayed.
package nonce

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNonceInvalid is returned when no live nonce exists for an identity:
// never issued, already consumed, or expired.
var ErrNonceInvalid = fmt.Errorf("nonce invalid or expired")

// messageTemplate is the canonical challenge text. Any wallet-compatible
// signer can sign it; verification only requires that the signed message
// embeds the issued nonce.
const messageTemplate = "Sign this message to authenticate with your wallet.\n\nNonce: %s"

// Challenge is an issued nonce together with the canonical message to sign.
type Challenge struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// Store issues and single-use-consumes per-identity challenge nonces.
// At most one nonce is live per identity; Issue replaces any prior one.
type Store interface {
	// Issue generates a fresh nonce for the identity with the given TTL,
	// replacing any existing one.
	Issue(ctx context.Context, identity string, ttl time.Duration) (*Challenge, error)
	// Consume atomically deletes and returns the live nonce for the identity.
	// If two callers race, at most one succeeds; the loser gets ErrNonceInvalid.
	Consume(ctx context.Context, identity string) (string, error)
}

// Message renders the canonical challenge message for a nonce.
func Message(nonce string) string {
	return fmt.Sprintf(messageTemplate, nonce)
}

// MessageEmbeds reports whether a signed message carries the issued nonce.
func MessageEmbeds(message, nonce string) bool {
	return nonce != "" && strings.Contains(message, nonce)
}

// newValue builds a nonce from a time component and two independent random
// draws, so guessing within the TTL window is infeasible.
func newValue() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to draw nonce entropy: %w", err)
	}
	return fmt.Sprintf("%d.%s.%s", time.Now().UnixNano(), hex.EncodeToString(buf[:]), uuid.NewString()), nil
}
