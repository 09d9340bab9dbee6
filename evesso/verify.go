package evesso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
)

// Identity is the verified character behind an access token.
//
// CharacterOwnerHash is the stable anchor for "same underlying account":
// it is immutable per character across logins (names can change) and is the
// correct key for any per-character storage.
type Identity struct {
	CharacterID        int64  `json:"character_id" cbor:"1,keyasint"`
	CharacterName      string `json:"character_name" cbor:"2,keyasint"`
	CharacterOwnerHash string `json:"character_owner_hash" cbor:"3,keyasint"`
	Scopes             Scopes `json:"scopes" cbor:"4,keyasint"`
}

// Verifier resolves a freshly issued access token into the authenticated
// character's identity and granted scopes.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (Identity, error)
}

// verifyTimeout bounds the outbound verification call.
const verifyTimeout = 15 * time.Second

// RemoteVerifier calls the SSO verify endpoint with the access token as a
// bearer credential. This mirrors the legacy /oauth/verify contract.
type RemoteVerifier struct {
	verifyURL  string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewRemoteVerifier creates a RemoteVerifier. An empty verifyURL selects the
// default endpoint.
func NewRemoteVerifier(verifyURL string, log zerolog.Logger) *RemoteVerifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &RemoteVerifier{
		verifyURL:  verifyURL,
		httpClient: &http.Client{Timeout: verifyTimeout},
		log:        log,
	}
}

// verifyResponse is the SSO verify endpoint's payload. Field names follow
// the provider's PascalCase wire format.
type verifyResponse struct {
	CharacterID        int64  `json:"CharacterID"`
	CharacterName      string `json:"CharacterName"`
	CharacterOwnerHash string `json:"CharacterOwnerHash"`
	Scopes             string `json:"Scopes"`
	TokenType          string `json:"TokenType"`
	ExpiresOn          string `json:"ExpiresOn"`
}

// Verify implements Verifier.
func (v *RemoteVerifier) Verify(ctx context.Context, accessToken string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.verifyURL, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("evesso: verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		v.log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("token verification rejected")
		return Identity{}, fmt.Errorf("%w: status %d", ErrVerificationRejected, resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Identity{}, fmt.Errorf("%w: malformed response: %v", ErrVerificationRejected, err)
	}

	return Identity{
		CharacterID:        vr.CharacterID,
		CharacterName:      vr.CharacterName,
		CharacterOwnerHash: vr.CharacterOwnerHash,
		Scopes:             ParseScopes(vr.Scopes),
	}, nil
}

// JWTVerifier validates the SSO-issued JWT access token locally against the
// issuer's JWKS instead of calling the verify endpoint. EVE SSO v2 issues
// JWT access tokens and CCP has deprecated remote verification; this path
// trades one network round-trip per login for a cached key set.
type JWTVerifier struct {
	verifier *oidc.IDTokenVerifier
	log      zerolog.Logger
}

// NewJWTVerifier discovers the issuer's configuration and JWKS endpoint.
// An empty issuer selects the default SSO issuer.
func NewJWTVerifier(ctx context.Context, issuer, clientID string, log zerolog.Logger) (*JWTVerifier, error) {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("evesso: issuer discovery: %w", err)
	}
	return &JWTVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		log:      log,
	}, nil
}

// characterSubjectPrefix prefixes the subject claim of SSO access tokens,
// as in "CHARACTER:EVE:2112625428".
const characterSubjectPrefix = "CHARACTER:EVE:"

// Verify implements Verifier.
func (v *JWTVerifier) Verify(ctx context.Context, accessToken string) (Identity, error) {
	tok, err := v.verifier.Verify(ctx, accessToken)
	if err != nil {
		v.log.Error().Err(err).Msg("access token JWT validation failed")
		return Identity{}, fmt.Errorf("%w: %v", ErrVerificationRejected, err)
	}

	var claims struct {
		Name  string          `json:"name"`
		Owner string          `json:"owner"`
		Scp   json.RawMessage `json:"scp"`
	}
	if err := tok.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("%w: malformed claims: %v", ErrVerificationRejected, err)
	}

	idStr, ok := strings.CutPrefix(tok.Subject, characterSubjectPrefix)
	if !ok {
		return Identity{}, fmt.Errorf("%w: unexpected subject %q", ErrVerificationRejected, tok.Subject)
	}
	characterID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: unexpected subject %q", ErrVerificationRejected, tok.Subject)
	}

	return Identity{
		CharacterID:        characterID,
		CharacterName:      claims.Name,
		CharacterOwnerHash: claims.Owner,
		Scopes:             parseScopeClaim(claims.Scp),
	}, nil
}

// parseScopeClaim handles the scp claim, which the SSO emits as a plain
// string for a single scope and as an array for several.
func parseScopeClaim(raw json.RawMessage) Scopes {
	if len(raw) == 0 {
		return Scopes{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return ParseScopes(strings.Join(list, " "))
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return ParseScopes(single)
	}
	return Scopes{}
}
