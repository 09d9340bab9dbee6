package evesso

import (
	"errors"
	"fmt"
)

// FlowErrorKind classifies failures of the authorization-code exchange.
// Each kind maps to a distinct browser-visible error code at the handler
// boundary; none of them is retried automatically.
type FlowErrorKind int

const (
	// ProviderDenied: the provider returned an error parameter on callback.
	ProviderDenied FlowErrorKind = iota + 1
	// MissingCode: the callback carried no authorization code.
	MissingCode
	// StateMismatch: the returned state did not exactly match the stored
	// one (or no state was stored). Treated as a CSRF attempt.
	StateMismatch
	// MissingCredentials: client id or secret is not configured.
	MissingCredentials
	// TokenEndpointRejected: the token endpoint answered with a non-success
	// status. The response body is logged, never surfaced to the browser.
	TokenEndpointRejected
	// NetworkFailure: the token endpoint could not be reached.
	NetworkFailure
)

func (k FlowErrorKind) String() string {
	switch k {
	case ProviderDenied:
		return "provider denied"
	case MissingCode:
		return "missing authorization code"
	case StateMismatch:
		return "state mismatch"
	case MissingCredentials:
		return "missing client credentials"
	case TokenEndpointRejected:
		return "token endpoint rejected"
	case NetworkFailure:
		return "network failure"
	default:
		return "unknown"
	}
}

// FlowError is a typed failure of the authorization-code exchange.
type FlowError struct {
	Kind FlowErrorKind
	// ProviderCode carries the provider's error code for ProviderDenied.
	ProviderCode string
	cause        error
}

func (e *FlowError) Error() string {
	msg := fmt.Sprintf("evesso: exchange failed: %s", e.Kind)
	if e.ProviderCode != "" {
		msg += fmt.Sprintf(" (%s)", e.ProviderCode)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *FlowError) Unwrap() error {
	return e.cause
}

func flowError(kind FlowErrorKind, cause error) *FlowError {
	return &FlowError{Kind: kind, cause: cause}
}

// ErrClientNotConfigured is returned when an authorization URL is requested
// without a configured client id. This is a configuration error, not a
// user-fixable condition.
var ErrClientNotConfigured = errors.New("evesso: client id not configured")

// ErrVerificationRejected is returned when the identity provider refuses to
// verify an access token.
var ErrVerificationRejected = errors.New("evesso: token verification rejected")
