package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/AmmannChristian/go-tokenx/oauth2client"
)

// ErrNilTokenProvider is returned by OAuth2Transport when no provider is set.
var ErrNilTokenProvider = errors.New("httpclient: TokenProvider is nil")

// OAuth2Transport is an http.RoundTripper that adds an OAuth2 Bearer token
// to every outgoing request.
//
// It wraps an existing transport (typically http.DefaultTransport) and
// injects the Authorization header before each request. The caller's request
// is never modified.
type OAuth2Transport struct {
	// Base is the underlying HTTP transport. If nil, http.DefaultTransport is used.
	Base http.RoundTripper

	// Provider supplies access tokens, usually an *oauth2client.Provider.
	Provider oauth2client.TokenProvider

	// Logger, if set, receives one line per authorized request. Token values
	// are never logged.
	Logger oauth2client.Logger
}

// RoundTrip implements http.RoundTripper.
// It fetches a valid token with the request context and sends a clone of req
// carrying "Authorization: Bearer <token>". The response of the base
// transport is returned as is. If the token cannot be obtained the request is
// not sent.
func (t *OAuth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isNilProvider(t.Provider) {
		return nil, ErrNilTokenProvider
	}

	token, err := t.Provider.GetAccessToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("httpclient: failed to get token: %w", err)
	}

	if t.Logger != nil {
		t.Logger.Printf("httpclient: attaching bearer token to %s %s", req.Method, req.URL.Redacted())
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(authed)
}

// NewOAuth2Transport creates an OAuth2Transport for tp.
// The base transport defaults to http.DefaultTransport if nil.
func NewOAuth2Transport(tp oauth2client.TokenProvider, base http.RoundTripper) *OAuth2Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &OAuth2Transport{
		Base:     base,
		Provider: tp,
	}
}

// Middleware returns a transport decorator that authorizes requests with tp.
// It composes with other RoundTripper middleware:
//
//	client := &http.Client{Transport: httpclient.Middleware(provider)(logging(http.DefaultTransport))}
func Middleware(tp oauth2client.TokenProvider) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewOAuth2Transport(tp, next)
	}
}

// isNilProvider also catches a nil pointer stored in the interface, such as
// the result of a failed oauth2client.NewProvider.
func isNilProvider(tp oauth2client.TokenProvider) bool {
	if tp == nil {
		return true
	}
	v := reflect.ValueOf(tp)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
