// Package session defines the browser session record and its lifecycle:
// materialization from a verified identity and token grant, persistence in a
// sealed cookie, and validation on every protected request.
//
// The server holds no session state of its own; the browser's cookie jar is
// the sole persistence location. A session is mutated only by replacement (a
// new login overwrites it) and destroyed by logout or expiry. Expiry is
// detected lazily on validation, never renewed on read.
package session

import (
	"time"

	"github.com/mnehpets/capsuledash/evesso"
)

// Session is the single unit of truth for "is this browser authenticated".
//
// The access token is a secret; it lives only inside the sealed cookie and
// is never exposed in logs or browser-visible responses.
type Session struct {
	Identity    evesso.Identity `cbor:"1,keyasint"`
	AccessToken string          `cbor:"2,keyasint"`
	ExpiresAt   time.Time       `cbor:"3,keyasint"`
}

// Materialize combines a verified identity and a token grant into a session.
// Pure: both inputs are already validated when this stage is reached.
// ExpiresAt is derived here, once, and never re-derived elsewhere.
func Materialize(identity evesso.Identity, grant evesso.TokenGrant, now time.Time) Session {
	return Session{
		Identity:    identity,
		AccessToken: grant.AccessToken,
		ExpiresAt:   now.Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
}
