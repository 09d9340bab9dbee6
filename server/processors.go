package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/mnehpets/capsuledash/endpoint"
	"github.com/mnehpets/capsuledash/session"
)

// securityHeaders sets baseline response headers on every route. The API
// serves per-user data, so responses are never cacheable.
func securityHeaders() endpoint.Processor {
	return endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request,
		next func(w http.ResponseWriter, r *http.Request) error) error {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		return next(w, r)
	})
}

// requireSession validates the session cookie and required scopes, and puts
// the resulting credentials on the request context. Absent, malformed and
// expired sessions all answer 401; a live session lacking a scope answers
// 403 naming what is missing.
func (s *Server) requireSession(scopes ...string) endpoint.Processor {
	return endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request,
		next func(w http.ResponseWriter, r *http.Request) error) error {
		creds, err := s.validator.Validate(r, scopes...)
		if err != nil {
			var scopeErr *session.InsufficientScopeError
			if errors.As(err, &scopeErr) {
				return endpoint.Error(http.StatusForbidden,
					"Insufficient permissions. Required scope: "+strings.Join(scopeErr.Missing, " "), err)
			}
			return endpoint.Error(http.StatusUnauthorized, "Not authenticated", err)
		}
		return next(w, r.WithContext(withCredentials(r.Context(), creds)))
	})
}
