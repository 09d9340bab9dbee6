package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/mnehpets/capsuledash/endpoint"
	"github.com/mnehpets/capsuledash/evesso"
	"github.com/mnehpets/capsuledash/session"
)

// handleLogin starts the SSO handshake: it stores a fresh state token in a
// sealed cookie and redirects the browser to the authorize endpoint.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	state, err := evesso.GenerateState()
	if err != nil {
		return nil, endpoint.Error(http.StatusInternalServerError, "callback_error", err)
	}

	authURL, err := s.sso.AuthorizeURL(state)
	if err != nil {
		s.log.Error().Err(err).Msg("login attempted without SSO credentials")
		return nil, endpoint.Error(http.StatusInternalServerError, "config_error", err)
	}

	cookie, err := s.stateCookie.Encode(state, stateMaxAge)
	if err != nil {
		return nil, endpoint.Error(http.StatusInternalServerError, "callback_error", err)
	}
	http.SetCookie(w, cookie)

	return &endpoint.RedirectRenderer{URL: authURL}, nil
}

type callbackParams struct {
	Code             string `query:"code"`
	State            string `query:"state"`
	Error            string `query:"error"`
	ErrorDescription string `query:"error_description"`
}

// handleCallback finishes the handshake: pop the state cookie, exchange the
// code, verify the token, materialize the session. Every failure sends the
// browser back to the app with an error code and leaves no session behind.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request, p callbackParams) (endpoint.Renderer, error) {
	storedState := s.popState(w, r)

	cb := evesso.Callback{
		Code:             p.Code,
		State:            p.State,
		Error:            p.Error,
		ErrorDescription: p.ErrorDescription,
	}
	grant, err := s.sso.Exchange(r.Context(), cb, storedState)
	if err != nil {
		code := callbackErrorCode(err)
		s.log.Warn().Str("code", code).Err(err).Msg("token exchange failed")
		return s.errorRedirect(code), nil
	}

	identity, err := s.verifier.Verify(r.Context(), grant.AccessToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("identity verification failed")
		return s.errorRedirect("verification_failed"), nil
	}

	sess := session.Materialize(identity, grant, s.now())
	if err := s.store.Write(w, sess); err != nil {
		s.log.Error().Err(err).Msg("session cookie write failed")
		return s.errorRedirect("callback_error"), nil
	}

	s.log.Info().
		Int64("character_id", identity.CharacterID).
		Str("character_name", identity.CharacterName).
		Msg("login complete")
	return &endpoint.RedirectRenderer{URL: s.cfg.BaseURL + "/?login=success"}, nil
}

// popState reads and clears the state cookie: single use, success or not.
func (s *Server) popState(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(s.stateCookie.Name())
	if err != nil {
		return ""
	}
	http.SetCookie(w, s.stateCookie.Clear())

	var state string
	if err := s.stateCookie.Decode(c, &state); err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable state cookie")
		return ""
	}
	return state
}

// callbackErrorCode maps an exchange failure onto the browser-visible error
// code. A provider-reported code passes through verbatim.
func callbackErrorCode(err error) string {
	var fe *evesso.FlowError
	if !errors.As(err, &fe) {
		return "callback_error"
	}
	switch fe.Kind {
	case evesso.ProviderDenied:
		if fe.ProviderCode != "" {
			return fe.ProviderCode
		}
		return "access_denied"
	case evesso.MissingCode:
		return "no_code"
	case evesso.StateMismatch:
		return "invalid_state"
	case evesso.MissingCredentials:
		return "config_error"
	case evesso.TokenEndpointRejected, evesso.NetworkFailure:
		return "token_exchange_failed"
	default:
		return "callback_error"
	}
}

func (s *Server) errorRedirect(code string) endpoint.Renderer {
	q := url.Values{"error": {code}}
	return &endpoint.RedirectRenderer{URL: s.cfg.BaseURL + "/?" + q.Encode()}
}

type successResponse struct {
	Success bool `json:"success"`
}

// handleLogout destroys the session by expiring its cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	s.store.Clear(w)
	return &endpoint.JSONRenderer{Value: successResponse{Success: true}}, nil
}

type sessionResponse struct {
	User *evesso.Identity `json:"user"`
}

// handleSession reports the current login state. It never errors: any
// invalid, expired or absent session is simply a null user.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
	creds, err := s.validator.Validate(r)
	if err != nil {
		return &endpoint.JSONRenderer{Value: sessionResponse{User: nil}}, nil
	}
	return &endpoint.JSONRenderer{Value: sessionResponse{User: &creds.Identity}}, nil
}
