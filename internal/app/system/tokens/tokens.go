// Package tokens mints unguessable hex tokens for invite links and auth
// sessions.
package tokens

import (
	"encoding/hex"
	"errors"

	"github.com/gorilla/securecookie"
)

const (
	// InviteBytes gives 128-bit invite tokens (32 hex chars).
	InviteBytes = 16
	// SessionBytes gives 256-bit session tokens (64 hex chars).
	SessionBytes = 32
)

var errNoEntropy = errors.New("tokens: random source unavailable")

// New returns n random bytes hex-encoded.
func New(n int) (string, error) {
	b := securecookie.GenerateRandomKey(n)
	if b == nil {
		return "", errNoEntropy
	}
	return hex.EncodeToString(b), nil
}
