// Package evesso implements the relying-party side of EVE Online's SSO:
// anti-CSRF state generation, the authorization redirect, the
// authorization-code exchange, and verification of the resulting access
// token into a character identity.
package evesso

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Default EVE SSO endpoints.
const (
	DefaultAuthorizeURL = "https://login.eveonline.com/v2/oauth/authorize"
	DefaultTokenURL     = "https://login.eveonline.com/v2/oauth/token"
	DefaultVerifyURL    = "https://login.eveonline.com/oauth/verify"
	DefaultIssuer       = "https://login.eveonline.com"
)

// exchangeTimeout bounds the outbound token-endpoint call so a stalled
// provider cannot hang a callback handler indefinitely. The protocol itself
// specifies no timeout; 15s sits in the commonly recommended 10-30s range.
const exchangeTimeout = 15 * time.Second

// Config carries the relying-party settings for one SSO registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string

	// AuthorizeURL and TokenURL override the default SSO endpoints.
	// Used by tests and alternate deployments.
	AuthorizeURL string
	TokenURL     string
}

// Callback holds the query parameters the provider sends to the redirect URI.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// TokenGrant is the provider's answer to a successful code exchange.
//
// The access and refresh tokens are secrets: they are handed to the session
// materializer and must never appear in logs or browser-visible responses.
type TokenGrant struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int64
	RefreshToken string
}

// Client performs the authorization-code flow against the SSO.
type Client struct {
	conf       oauth2.Config
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Client. Credentials may be empty; every operation that
// needs them reports a configuration error instead of assuming them.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	authorizeURL := cfg.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &Client{
		conf: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizeURL,
				TokenURL: tokenURL,
				// EVE SSO requires HTTP Basic client authentication.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: exchangeTimeout},
		log:        log,
	}
}

// AuthorizeURL builds the SSO authorization URL embedding client identity,
// requested scopes, redirect target and the state token. Deterministic given
// its inputs; fails with ErrClientNotConfigured rather than emitting a
// malformed URL when the client id is unset.
func (c *Client) AuthorizeURL(state string) (string, error) {
	if c.conf.ClientID == "" {
		return "", ErrClientNotConfigured
	}
	return c.conf.AuthCodeURL(state), nil
}

// Exchange validates the callback and exchanges its authorization code for a
// token grant.
//
// Checks run strictly in order before any network call: provider-reported
// error, presence of code, exact state match, credential configuration.
// Every failure is a *FlowError; none is retried — the user restarting at
// login is the only retry mechanism.
func (c *Client) Exchange(ctx context.Context, cb Callback, storedState string) (TokenGrant, error) {
	if cb.Error != "" {
		return TokenGrant{}, &FlowError{
			Kind:         ProviderDenied,
			ProviderCode: cb.Error,
			cause:        errors.New(cb.ErrorDescription),
		}
	}
	if cb.Code == "" {
		return TokenGrant{}, flowError(MissingCode, nil)
	}
	if storedState == "" || cb.State != storedState {
		return TokenGrant{}, flowError(StateMismatch, nil)
	}
	if c.conf.ClientID == "" || c.conf.ClientSecret == "" {
		return TokenGrant{}, flowError(MissingCredentials, ErrClientNotConfigured)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.conf.Exchange(ctx, cb.Code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			c.log.Error().
				Int("status", re.Response.StatusCode).
				Str("body", string(re.Body)).
				Msg("token exchange rejected by provider")
			return TokenGrant{}, flowError(TokenEndpointRejected, err)
		}
		return TokenGrant{}, flowError(NetworkFailure, err)
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Seconds())
	}

	return TokenGrant{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    expiresIn,
		RefreshToken: tok.RefreshToken,
	}, nil
}
