// Package securecookie seals cookie payloads with authenticated encryption.
//
// Values are CBOR-encoded and sealed with XChaCha20-Poly1305. The wire format
// is "[keyID].[base64url(nonce || ciphertext)]". A map of accepted keys allows
// rotation: KeyID selects the sealing key, while any listed key may open.
// The cookie name, domain, path and secure flag are bound into the AAD so a
// sealed value cannot be replayed under different cookie attributes.
package securecookie

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrFormat  = errors.New("securecookie: invalid cookie format")
	ErrInvalid = errors.New("securecookie: invalid cookie")
	ErrConfig  = errors.New("securecookie: invalid configuration")
)

// KeySize is the required length in bytes of every sealing key.
const KeySize = chacha20poly1305.KeySize

// maxValueLen bounds the amount of attacker-controlled data we will decode.
// Browsers cap individual cookies around 4KB; we enforce our own limit.
const maxValueLen = 8192

// Codec seals and opens the payload of a single named cookie.
type Codec struct {
	name     string
	path     string
	domain   string
	secure   bool
	sameSite http.SameSite

	keyID string
	keys  map[string][]byte
}

// Option configures a Codec.
type Option func(*Codec)

// WithPath sets the cookie path. Default "/".
func WithPath(path string) Option {
	return func(c *Codec) { c.path = path }
}

// WithDomain sets the cookie domain. Default empty (host-only).
func WithDomain(domain string) Option {
	return func(c *Codec) { c.domain = domain }
}

// WithSecure sets the cookie Secure attribute. Default true.
func WithSecure(secure bool) Option {
	return func(c *Codec) { c.secure = secure }
}

// WithSameSite sets the cookie SameSite attribute. Default Lax.
func WithSameSite(s http.SameSite) Option {
	return func(c *Codec) { c.sameSite = s }
}

// New creates a Codec for the named cookie. keys maps key IDs to 32-byte
// keys; keyID selects the key used for sealing and must be present in keys.
func New(name, keyID string, keys map[string][]byte, opts ...Option) (*Codec, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty cookie name", ErrConfig)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no keys", ErrConfig)
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%w: keyID %q not found in keys", ErrConfig, keyID)
	}
	for id, k := range keys {
		if len(k) != KeySize {
			return nil, fmt.Errorf("%w: key %q must be %d bytes", ErrConfig, id, KeySize)
		}
	}

	c := &Codec{
		name:     name,
		path:     "/",
		secure:   true,
		sameSite: http.SameSiteLaxMode,
		keyID:    keyID,
		keys:     keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.path == "" {
		c.path = "/"
	}
	return c, nil
}

// Name returns the cookie name.
func (c *Codec) Name() string {
	return c.name
}

// aad binds the cookie attributes to the sealed value.
func (c *Codec) aad() []byte {
	secure := "f"
	if c.secure {
		secure = "t"
	}
	return []byte(c.name + ":" + c.domain + ":" + c.path + ":" + secure)
}

// Encode marshals and seals v into an http.Cookie with the given Max-Age in
// seconds. maxAge must be positive.
func (c *Codec) Encode(v any, maxAge int) (*http.Cookie, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("%w: non-positive max-age", ErrInvalid)
	}

	plain, err := cbor.Marshal(v)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(c.keys[c.keyID])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	sealed := aead.Seal(nonce, nonce, plain, c.aad())

	return &http.Cookie{
		Name:     c.name,
		Value:    c.keyID + "." + base64.RawURLEncoding.EncodeToString(sealed),
		Path:     c.path,
		Domain:   c.domain,
		MaxAge:   maxAge,
		Expires:  time.Now().Add(time.Duration(maxAge) * time.Second),
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: c.sameSite,
	}, nil
}

// Decode opens the cookie value and unmarshals it into v.
//
// Returns ErrFormat for structurally bad values and ErrInvalid for values
// that fail authentication (wrong key, tampering, attribute mismatch).
func (c *Codec) Decode(cookie *http.Cookie, v any) error {
	if cookie == nil {
		return ErrFormat
	}
	value := cookie.Value
	if len(value) == 0 || len(value) > maxValueLen {
		return ErrFormat
	}

	keyID, encoded, ok := strings.Cut(value, ".")
	if !ok || keyID == "" || encoded == "" {
		return ErrFormat
	}
	key, ok := c.keys[keyID]
	if !ok {
		return ErrInvalid
	}

	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return ErrFormat
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return ErrFormat
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, c.aad())
	if err != nil {
		return ErrInvalid
	}

	if err := cbor.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return nil
}

// Clear returns a cookie that deletes this cookie in the client.
func (c *Codec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     c.path,
		Domain:   c.domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: c.sameSite,
	}
}
