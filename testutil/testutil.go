// Package testutil provides a fake OAuth2 token endpoint for tests of code
// that depends on oauth2client.
//
//	endpoint := testutil.NewTokenEndpoint(t, testutil.WithToken("tok", 3600))
//	p := endpoint.NewProvider(t, oauth2client.ClientCredentials("id", "secret"))
package testutil

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/AmmannChristian/go-tokenx/oauth2client"
)

// TokenPath is the path the endpoint serves tokens on.
const TokenPath = "/token"

// TokenEndpoint is an httptest server answering form-encoded token requests
// on TokenPath. It records every request it receives.
type TokenEndpoint struct {
	server *httptest.Server

	mu      sync.Mutex
	status  int
	body    string
	forms   []url.Values
	headers []http.Header
}

// EndpointOption configures a TokenEndpoint.
type EndpointOption func(*TokenEndpoint)

// WithToken makes the endpoint issue value with the given expires_in.
func WithToken(value string, expiresIn int) EndpointOption {
	return func(e *TokenEndpoint) {
		e.status = http.StatusOK
		e.body = tokenBody(value, expiresIn)
	}
}

// WithResponse makes the endpoint answer with a fixed status and body.
func WithResponse(status int, body string) EndpointOption {
	return func(e *TokenEndpoint) {
		e.status = status
		e.body = body
	}
}

// NewTokenEndpoint starts a token endpoint on the IPv4 loopback. It issues
// "test-access-token" valid for one hour unless configured otherwise and is
// closed when the test ends.
func NewTokenEndpoint(tb testing.TB, opts ...EndpointOption) *TokenEndpoint {
	tb.Helper()

	e := &TokenEndpoint{
		status: http.StatusOK,
		body:   tokenBody("test-access-token", 3600),
	}
	for _, opt := range opts {
		opt(e)
	}

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("failed to create IPv4 listener: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenPath, e.serveToken)

	e.server = httptest.NewUnstartedServer(mux)
	e.server.Listener = listener
	e.server.Start()
	tb.Cleanup(e.server.Close)

	return e
}

func (e *TokenEndpoint) serveToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(raw))

	e.mu.Lock()
	e.forms = append(e.forms, form)
	e.headers = append(e.headers, r.Header.Clone())
	status, body := e.status, e.body
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// URL returns the absolute token URL.
func (e *TokenEndpoint) URL() string {
	return e.server.URL + TokenPath
}

// SetResponse changes the answer for subsequent requests.
func (e *TokenEndpoint) SetResponse(status int, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
	e.body = body
}

// SetToken is SetResponse with a successful token body.
func (e *TokenEndpoint) SetToken(value string, expiresIn int) {
	e.SetResponse(http.StatusOK, tokenBody(value, expiresIn))
}

// Count returns how many token requests were received.
func (e *TokenEndpoint) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.forms)
}

// Forms returns the decoded body of every token request.
func (e *TokenEndpoint) Forms() []url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]url.Values, len(e.forms))
	copy(out, e.forms)
	return out
}

// Headers returns the headers of every token request.
func (e *TokenEndpoint) Headers() []http.Header {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]http.Header, len(e.headers))
	copy(out, e.headers)
	return out
}

// NewProvider returns a provider for grant that talks to the endpoint.
func (e *TokenEndpoint) NewProvider(tb testing.TB, grant oauth2client.Grant, opts ...oauth2client.Option) *oauth2client.Provider {
	tb.Helper()

	opts = append([]oauth2client.Option{oauth2client.WithHTTPClient(e.server.Client())}, opts...)
	p, err := oauth2client.NewProvider(e.URL(), grant, opts...)
	if err != nil {
		tb.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func tokenBody(value string, expiresIn int) string {
	b, _ := json.Marshal(map[string]any{
		"access_token": value,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
	})
	return string(b)
}
