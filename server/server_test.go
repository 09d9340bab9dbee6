package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnehpets/capsuledash/config"
	"github.com/mnehpets/capsuledash/evesso"
	"github.com/mnehpets/capsuledash/session"
)

// stubVerifier returns a fixed identity, or an error.
type stubVerifier struct {
	identity evesso.Identity
	err      error
}

func (v *stubVerifier) Verify(context.Context, string) (evesso.Identity, error) {
	if v.err != nil {
		return evesso.Identity{}, v.err
	}
	return v.identity, nil
}

func defaultIdentity() evesso.Identity {
	return evesso.Identity{
		CharacterID:        100,
		CharacterName:      "Alice",
		CharacterOwnerHash: "hash-1",
		Scopes: evesso.ParseScopes("publicData" +
			" esi-location.read_location.v1" +
			" esi-skills.read_skills.v1"),
	}
}

// fakeSSO is a token endpoint that succeeds unless told otherwise.
func fakeSSO(t *testing.T, reject bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reject {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":1200}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeESI answers the dashboard's resource calls with canned data.
func fakeESI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(pattern, body string) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	reply("GET /characters/100/", `{"name":"Alice","corporation_id":2000}`)
	reply("GET /corporations/2000/", `{"name":"Test Corp","ticker":"TEST","member_count":10}`)
	reply("GET /characters/100/online/", `{"online":true}`)
	reply("GET /characters/100/ship/", `{"ship_item_id":1,"ship_name":"Boaty","ship_type_id":587}`)
	reply("GET /universe/types/587/", `{"type_id":587,"name":"Rifter"}`)
	reply("GET /characters/100/location/", `{"solar_system_id":30000142}`)
	reply("GET /universe/systems/30000142/", `{"system_id":30000142,"name":"Jita","security_status":0.9,"constellation_id":20000020}`)
	reply("GET /characters/100/skills/", `{"skills":[{"skill_id":3300,"active_skill_level":5,"trained_skill_level":5,"skillpoints_in_skill":256000}],"total_sp":5000000,"unallocated_sp":0}`)
	reply("GET /characters/100/skillqueue/", `[{"skill_id":3300,"finished_level":5,"queue_position":0}]`)
	reply("POST /universe/names/", `[{"id":3300,"category":"inventory_type","name":"Gunnery"}]`)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testApp struct {
	srv    *Server
	app    *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T, opts ...Option) *testApp {
	t.Helper()

	sso := fakeSSO(t, false)
	esiSrv := fakeESI(t)

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	cfg := config.Config{
		ListenAddr:   ":0",
		BaseURL:      "http://app.test",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://app.test/auth/callback",
		Scopes:       config.DefaultScopes,
		SessionKeyID: "k1",
		SessionKeys:  map[string][]byte{"k1": key},
		TokenURL:     sso.URL,
		VerifyMode:   config.VerifyModeRemote,
		ESIBaseURL:   esiSrv.URL,
	}
	require.NoError(t, cfg.Validate())

	allOpts := append([]Option{WithVerifier(&stubVerifier{identity: defaultIdentity()})}, opts...)
	srv, err := New(t.Context(), cfg, zerolog.Nop(), allOpts...)
	require.NoError(t, err)

	app := httptest.NewServer(srv.Handler())
	t.Cleanup(app.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{srv: srv, app: app, client: client}
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := a.client.Get(a.app.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) post(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := a.client.Post(a.app.URL+path, "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// login runs /auth/login and returns the state echoed in the redirect.
func (a *testApp) login(t *testing.T) string {
	t.Helper()
	resp := a.get(t, "/auth/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func (a *testApp) callback(t *testing.T, query string) *http.Response {
	t.Helper()
	return a.get(t, "/auth/callback?"+query)
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func redirectError(t *testing.T, resp *http.Response) string {
	t.Helper()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc.Query().Get("error")
}

func hasSessionCookie(resp *http.Response) bool {
	for _, c := range resp.Cookies() {
		if c.Name == session.DefaultCookieName && c.MaxAge > 0 {
			return true
		}
	}
	return false
}

func TestLogin_RedirectsToSSO(t *testing.T) {
	a := newTestApp(t)

	resp := a.get(t, "/auth/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	q := loc.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.NotEmpty(t, q.Get("state"))

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == StateCookieName {
			found = true
			assert.True(t, c.HttpOnly)
			assert.Equal(t, stateMaxAge, c.MaxAge)
			// The sealed value never contains the raw state.
			assert.NotContains(t, c.Value, q.Get("state"))
		}
	}
	assert.True(t, found, "state cookie not set")
}

func TestLogin_WithoutCredentials(t *testing.T) {
	a := newTestApp(t)
	a.srv.sso = evesso.NewClient(evesso.Config{}, zerolog.Nop())

	resp := a.get(t, "/auth/login")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	assert.Equal(t, "config_error", body["error"])
}

func TestFullLoginFlow(t *testing.T) {
	a := newTestApp(t)

	state := a.login(t)
	resp := a.callback(t, url.Values{"code": {"CODE"}, "state": {state}}.Encode())

	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Equal(t, "http://app.test/?login=success", loc)
	assert.True(t, hasSessionCookie(resp))

	// The session endpoint now reports the character.
	sessResp := a.get(t, "/auth/session")
	require.Equal(t, http.StatusOK, sessResp.StatusCode)
	body := decodeJSON[struct {
		User *evesso.Identity `json:"user"`
	}](t, sessResp)
	require.NotNil(t, body.User)
	assert.Equal(t, int64(100), body.User.CharacterID)
	assert.Equal(t, "Alice", body.User.CharacterName)
}

func TestCallback_FailedExchangeLeavesNoSession(t *testing.T) {
	a := newTestApp(t)
	reject := fakeSSO(t, true)
	a.srv.sso = evesso.NewClient(evesso.Config{
		ClientID: "client-id", ClientSecret: "client-secret", TokenURL: reject.URL,
	}, zerolog.Nop())

	state := a.login(t)
	resp := a.callback(t, url.Values{"code": {"CODE"}, "state": {state}}.Encode())

	assert.Equal(t, "token_exchange_failed", redirectError(t, resp))
	assert.False(t, hasSessionCookie(resp))

	body := decodeJSON[struct {
		User *evesso.Identity `json:"user"`
	}](t, a.get(t, "/auth/session"))
	assert.Nil(t, body.User)
}

func TestCallback_ProviderError(t *testing.T) {
	a := newTestApp(t)

	a.login(t)
	resp := a.callback(t, "error=access_denied&error_description=denied")
	assert.Equal(t, "access_denied", redirectError(t, resp))
	assert.False(t, hasSessionCookie(resp))
}

func TestCallback_MissingCode(t *testing.T) {
	a := newTestApp(t)

	state := a.login(t)
	resp := a.callback(t, url.Values{"state": {state}}.Encode())
	assert.Equal(t, "no_code", redirectError(t, resp))
}

func TestCallback_StateMismatch(t *testing.T) {
	a := newTestApp(t)

	a.login(t)
	resp := a.callback(t, "code=CODE&state=forged")
	assert.Equal(t, "invalid_state", redirectError(t, resp))
	assert.False(t, hasSessionCookie(resp))
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	a := newTestApp(t)

	state := a.login(t)
	query := url.Values{"code": {"CODE"}, "state": {state}}.Encode()

	first := a.callback(t, query)
	require.Equal(t, http.StatusFound, first.StatusCode)
	assert.Contains(t, first.Header.Get("Location"), "login=success")

	// The state cookie was popped; replaying the same callback fails.
	replay := a.callback(t, query)
	assert.Equal(t, "invalid_state", redirectError(t, replay))
	assert.False(t, hasSessionCookie(replay))
}

func TestCallback_VerificationFailure(t *testing.T) {
	a := newTestApp(t)
	a.srv.verifier = &stubVerifier{err: evesso.ErrVerificationRejected}

	state := a.login(t)
	resp := a.callback(t, url.Values{"code": {"CODE"}, "state": {state}}.Encode())
	assert.Equal(t, "verification_failed", redirectError(t, resp))
	assert.False(t, hasSessionCookie(resp))
}

func TestLogout(t *testing.T) {
	a := newTestApp(t)

	state := a.login(t)
	a.callback(t, url.Values{"code": {"CODE"}, "state": {state}}.Encode())

	resp := a.post(t, "/auth/logout")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[map[string]bool](t, resp)
	assert.True(t, body["success"])

	sess := decodeJSON[struct {
		User *evesso.Identity `json:"user"`
	}](t, a.get(t, "/auth/session"))
	assert.Nil(t, sess.User)
}

func (a *testApp) loginAndCallback(t *testing.T) {
	t.Helper()
	state := a.login(t)
	resp := a.callback(t, url.Values{"code": {"CODE"}, "state": {state}}.Encode())
	require.Contains(t, resp.Header.Get("Location"), "login=success")
}

func TestProfile(t *testing.T) {
	a := newTestApp(t)
	a.loginAndCallback(t)

	resp := a.get(t, "/api/profile")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string]any](t, resp)
	character := body["character"].(map[string]any)
	assert.Equal(t, "Alice", character["name"])
	corp := body["corporation"].(map[string]any)
	assert.Equal(t, "Test Corp", corp["name"])
	assert.Equal(t, true, body["online_status"])
	ship := body["ship"].(map[string]any)
	assert.Equal(t, "Rifter", ship["ship_type_name"])
}

func TestProfile_Unauthenticated(t *testing.T) {
	a := newTestApp(t)

	resp := a.get(t, "/api/profile")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	assert.Equal(t, "Not authenticated", body["error"])
}

func TestProfile_ExpiredSession(t *testing.T) {
	a := newTestApp(t)
	a.loginAndCallback(t)

	// Jump past the 1200s token lifetime.
	future := time.Now().Add(1201 * time.Second)
	a.srv.validator = session.NewValidator(a.srv.store,
		session.WithClock(func() time.Time { return future }))

	resp := a.get(t, "/api/profile")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Expired also reads as logged out, never as an error.
	sess := decodeJSON[struct {
		User *evesso.Identity `json:"user"`
	}](t, a.get(t, "/auth/session"))
	assert.Nil(t, sess.User)
}

func TestLocation(t *testing.T) {
	a := newTestApp(t)
	a.loginAndCallback(t)

	resp := a.get(t, "/api/location")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string]any](t, resp)
	loc := body["location"].(map[string]any)
	assert.Equal(t, float64(30000142), loc["solar_system_id"])
	sys := body["solar_system"].(map[string]any)
	assert.Equal(t, "Jita", sys["name"])
}

func TestLocation_MissingScope(t *testing.T) {
	a := newTestApp(t)
	a.srv.verifier = &stubVerifier{identity: evesso.Identity{
		CharacterID:        100,
		CharacterName:      "Alice",
		CharacterOwnerHash: "hash-1",
		Scopes:             evesso.Scopes{"publicData"},
	}}
	a.loginAndCallback(t)

	resp := a.get(t, "/api/location")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	assert.Contains(t, body["error"], "esi-location.read_location.v1")
}

func TestSkills(t *testing.T) {
	a := newTestApp(t)
	a.loginAndCallback(t)

	resp := a.get(t, "/api/character/skills")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, float64(5000000), body["total_sp"])
	skills := body["skills"].([]any)
	require.Len(t, skills, 1)
}

func TestSkillQueue_MissingScope(t *testing.T) {
	// The default identity lacks the skillqueue scope.
	a := newTestApp(t)
	a.loginAndCallback(t)

	resp := a.get(t, "/api/character/skillqueue")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	assert.Contains(t, body["error"], "esi-skills.read_skillqueue.v1")
}

func TestSkillQueue(t *testing.T) {
	a := newTestApp(t)
	ident := defaultIdentity()
	ident.Scopes = evesso.ParseScopes(ident.Scopes.String() + " esi-skills.read_skillqueue.v1")
	a.srv.verifier = &stubVerifier{identity: ident}
	a.loginAndCallback(t)

	resp := a.get(t, "/api/character/skillqueue")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string][]map[string]any](t, resp)
	require.Len(t, body["queue"], 1)
	assert.Equal(t, "Gunnery", body["queue"][0]["skill_name"])
}

func TestVisitedSystems(t *testing.T) {
	a := newTestApp(t)
	a.loginAndCallback(t)

	resp := a.get(t, "/api/visited-systems")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, float64(5), body["total_count"])
	systems := body["systems"].([]any)
	require.Len(t, systems, 5)
}

func TestVisitedSystems_Unauthenticated(t *testing.T) {
	a := newTestApp(t)

	resp := a.get(t, "/api/visited-systems")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	a := newTestApp(t)

	resp := a.get(t, "/auth/session")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestSessionEndpoint_MalformedCookie(t *testing.T) {
	a := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, a.app.URL+"/auth/session", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "garbage"})

	resp, err := a.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[struct {
		User *evesso.Identity `json:"user"`
	}](t, resp)
	assert.Nil(t, body.User)
}
