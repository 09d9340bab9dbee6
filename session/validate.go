package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mnehpets/capsuledash/evesso"
)

var (
	// ErrUnauthenticated covers an absent or unreadable session.
	ErrUnauthenticated = errors.New("session: not authenticated")
	// ErrExpired indicates the session's lifetime has elapsed. For all
	// recovery purposes it behaves like ErrUnauthenticated: the user must
	// restart at login.
	ErrExpired = errors.New("session: expired")
)

// InsufficientScopeError indicates the session lacks scopes the caller
// requires.
type InsufficientScopeError struct {
	Missing []string
}

func (e *InsufficientScopeError) Error() string {
	return "session: missing required scopes: " + strings.Join(e.Missing, " ")
}

// Credentials is a validated session's usable output: the authenticated
// identity and the bearer credential for downstream resource calls.
type Credentials struct {
	Identity    evesso.Identity
	AccessToken string
}

// Validator decodes and checks the stored session on every protected access.
type Validator struct {
	store *Store
	now   func() time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock replaces the time source, for expiry tests.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a Validator over the given store.
func NewValidator(store *Store, opts ...ValidatorOption) *Validator {
	v := &Validator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate reads the session from the request, checks expiry and scope
// sufficiency, and yields the identity plus access token.
//
// A session is valid iff now < ExpiresAt; there is no grace period. The
// expiry is re-checked here on every call rather than trusted to the cookie
// Max-Age, and the stored session is never mutated (detect-only, no
// renew-on-read).
func (v *Validator) Validate(r *http.Request, requiredScopes ...string) (Credentials, error) {
	sess, err := v.store.Read(r)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if !v.now().Before(sess.ExpiresAt) {
		return Credentials{}, ErrExpired
	}

	if missing := sess.Identity.Scopes.Missing(requiredScopes); len(missing) > 0 {
		return Credentials{}, &InsufficientScopeError{Missing: missing}
	}

	return Credentials{
		Identity:    sess.Identity,
		AccessToken: sess.AccessToken,
	}, nil
}
