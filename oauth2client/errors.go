package oauth2client

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError: the token endpoint was
	// unreachable or answered with a non-2xx status.
	ErrTransport = errors.New("oauth2client: transport error")

	// ErrProtocol matches every *ProtocolError: the token endpoint answered
	// 2xx but the body is not a usable token response.
	ErrProtocol = errors.New("oauth2client: protocol error")

	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("oauth2client: invalid configuration")
)

// TransportError reports a failed token request. StatusCode is zero when no
// response was received (network failure, cancellation).
type TransportError struct {
	StatusCode int
	// Body holds at most the first 512 bytes of the error response.
	Body string
	// OAuthError and Description are the RFC 6749 "error" and
	// "error_description" fields, when the endpoint sent them.
	OAuthError  string
	Description string
	Err         error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("oauth2client: token request failed: %v", e.Err)
	}

	msg := fmt.Sprintf("oauth2client: token endpoint returned status %d", e.StatusCode)
	if e.OAuthError != "" {
		msg += ": " + e.OAuthError
		if e.Description != "" {
			msg += " (" + e.Description + ")"
		}
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProtocolError reports a token response that could not be used. No token is
// cached when it is returned.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth2client: invalid token response: %s: %v", e.Reason, e.Err)
	}
	return "oauth2client: invalid token response: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is reports whether target is ErrProtocol.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// ConfigurationError is returned by constructors when a required setting is
// missing or malformed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("oauth2client: invalid configuration: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
