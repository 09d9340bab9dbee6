// Package config loads and validates the service configuration from the
// environment. Configuration is an explicit struct passed to constructors;
// nothing else in the program reads environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/mnehpets/capsuledash/evesso"
	"github.com/mnehpets/capsuledash/securecookie"
)

// DefaultScopes is the scope set requested at login. It covers every
// dashboard endpoint; the per-endpoint checks still verify the grant.
const DefaultScopes = "publicData" +
	" esi-location.read_location.v1" +
	" esi-location.read_ship_type.v1" +
	" esi-location.read_online.v1" +
	" esi-skills.read_skills.v1" +
	" esi-skills.read_skillqueue.v1"

// Verifier selection values for EVE_VERIFY_MODE.
const (
	VerifyModeJWT    = "jwt"
	VerifyModeRemote = "remote"
)

// Config is the full service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":3000".
	ListenAddr string
	// BaseURL is the externally visible origin of the app, used for the
	// post-login redirect target and to decide the cookie Secure flag.
	BaseURL string

	// ClientID and ClientSecret identify this app to the SSO. The server
	// starts without them; login then fails with a configuration error.
	ClientID     string
	ClientSecret string
	// RedirectURI is the registered callback URL.
	RedirectURI string
	// Scopes is the space-separated scope set requested at login.
	Scopes string

	// SessionKeyID names the key in SessionKeys used to seal new cookies.
	SessionKeyID string
	// SessionKeys maps key ids to 32-byte sealing keys. Old keys stay
	// listed during rotation so existing sessions keep opening.
	SessionKeys map[string][]byte

	// AuthorizeURL, TokenURL and VerifyURL override the SSO endpoints;
	// empty selects the production SSO.
	AuthorizeURL string
	TokenURL     string
	VerifyURL    string
	// Issuer overrides the OIDC issuer used by the jwt verifier.
	Issuer string
	// VerifyMode selects the identity verifier: "jwt" (local JWKS
	// validation, the default) or "remote" (legacy verify endpoint).
	VerifyMode string

	// ESIBaseURL overrides the ESI endpoint; empty selects production.
	ESIBaseURL string
}

// FromEnv reads the configuration from the environment. Unset optional
// values take their defaults; SESSION_KEYS may be empty (the caller decides
// whether to generate an ephemeral key).
func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":3000"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:3000"),
		ClientID:     os.Getenv("EVE_CLIENT_ID"),
		ClientSecret: os.Getenv("EVE_CLIENT_SECRET"),
		RedirectURI:  getEnv("EVE_REDIRECT_URI", "http://localhost:3000/auth/callback"),
		Scopes:       getEnv("EVE_SCOPES", DefaultScopes),
		SessionKeyID: os.Getenv("SESSION_KEY_ID"),
		AuthorizeURL: os.Getenv("EVE_AUTHORIZE_URL"),
		TokenURL:     os.Getenv("EVE_TOKEN_URL"),
		VerifyURL:    os.Getenv("EVE_VERIFY_URL"),
		Issuer:       os.Getenv("EVE_ISSUER"),
		VerifyMode:   getEnv("EVE_VERIFY_MODE", VerifyModeJWT),
		ESIBaseURL:   os.Getenv("ESI_BASE_URL"),
	}

	if raw := os.Getenv("SESSION_KEYS"); raw != "" {
		keys, err := ParseSessionKeys(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.SessionKeys = keys
		if cfg.SessionKeyID == "" && len(keys) == 1 {
			for id := range keys {
				cfg.SessionKeyID = id
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseSessionKeys parses the SESSION_KEYS format: comma-separated
// "id:hexkey" pairs, each key 32 bytes (64 hex digits).
func ParseSessionKeys(raw string) (map[string][]byte, error) {
	keys := make(map[string][]byte)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, hexKey, ok := strings.Cut(pair, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("config: malformed session key entry %q", pair)
		}
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("config: session key %q: %w", id, err)
		}
		if len(key) != securecookie.KeySize {
			return nil, fmt.Errorf("config: session key %q must be %d bytes, got %d",
				id, securecookie.KeySize, len(key))
		}
		keys[id] = key
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("config: no session keys in %q", raw)
	}
	return keys, nil
}

// Validate checks internal consistency. Missing SSO credentials are not an
// error here: the server must come up without them and fail at login instead.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: empty listen address")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("config: empty base URL")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("config: base URL %q must be http(s)", c.BaseURL)
	}
	switch c.VerifyMode {
	case VerifyModeJWT, VerifyModeRemote:
	default:
		return fmt.Errorf("config: unknown verify mode %q", c.VerifyMode)
	}
	if len(c.SessionKeys) > 0 {
		if _, ok := c.SessionKeys[c.SessionKeyID]; !ok {
			return fmt.Errorf("config: session key id %q not present in keys", c.SessionKeyID)
		}
	}
	return nil
}

// CookiesSecure reports whether cookies should carry the Secure attribute:
// true exactly when the app is served over TLS.
func (c Config) CookiesSecure() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// SSOConfig assembles the evesso client configuration.
func (c Config) SSOConfig() evesso.Config {
	return evesso.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  c.RedirectURI,
		Scopes:       strings.Fields(c.Scopes),
		AuthorizeURL: c.AuthorizeURL,
		TokenURL:     c.TokenURL,
	}
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
