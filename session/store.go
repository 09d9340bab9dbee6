package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mnehpets/capsuledash/securecookie"
)

// DefaultCookieName is the default name of the session cookie.
const DefaultCookieName = "eve_session"

var (
	// ErrAbsent indicates no session cookie was presented.
	ErrAbsent = errors.New("session: no session cookie")
	// ErrMalformed indicates the cookie could not be opened or parsed.
	// This is an expected, frequent condition (format changes, tampering)
	// and is never allowed to surface as a fault.
	ErrMalformed = errors.New("session: malformed session cookie")
)

// Store persists sessions in a sealed, HTTP-only cookie whose Max-Age equals
// the remaining token lifetime.
type Store struct {
	cookie *securecookie.Codec
	now    func() time.Time
}

// NewStore creates a Store over the given cookie codec.
func NewStore(codec *securecookie.Codec) *Store {
	return &Store{cookie: codec, now: time.Now}
}

// Write seals sess into the session cookie on the response. Fails when the
// session is already expired rather than emitting an instantly dead cookie.
func (s *Store) Write(w http.ResponseWriter, sess Session) error {
	maxAge := int(sess.ExpiresAt.Sub(s.now()).Seconds())
	if maxAge <= 0 {
		return fmt.Errorf("session: refusing to write expired session")
	}
	c, err := s.cookie.Encode(sess, maxAge)
	if err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

// Read retrieves and opens the session cookie from the request.
func (s *Store) Read(r *http.Request) (Session, error) {
	c, err := r.Cookie(s.cookie.Name())
	if err != nil {
		return Session{}, ErrAbsent
	}
	var sess Session
	if err := s.cookie.Decode(c, &sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return sess, nil
}

// Clear instructs the browser to delete the session cookie immediately.
func (s *Store) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie.Clear())
}
