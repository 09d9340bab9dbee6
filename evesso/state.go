package evesso

import (
	"crypto/rand"
	"encoding/base64"
)

// stateLength is the number of random bytes used to generate the anti-CSRF
// state parameter. 32 bytes provides 256 bits of entropy, enough to make
// guessing a state within the 10-minute handshake window infeasible.
const stateLength = 32

// GenerateState creates a random, URL-safe state string for one
// authorization attempt. The caller is responsible for storing it in a
// short-lived HTTP-only cookie and comparing it on callback.
func GenerateState() (string, error) {
	b := make([]byte, stateLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
