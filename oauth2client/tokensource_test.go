package oauth2client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/AmmannChristian/go-tokenx/internal/testutil"
	"golang.org/x/oauth2"
)

func TestProvider_TokenSource(t *testing.T) {
	server := newMockOAuth2Server(t)
	clock := newFakeClock()
	p := newTestProvider(t, server, WithClock(clock.Now))

	ts := p.TokenSource(context.Background())

	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok.AccessToken != "tok" {
		t.Errorf("expected access token 'tok', got %q", tok.AccessToken)
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("expected Bearer token type, got %q", tok.TokenType)
	}
	if want := clock.Now().Add(3540 * time.Second); !tok.Expiry.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, tok.Expiry)
	}

	if _, err := ts.Token(); err != nil {
		t.Fatalf("second Token failed: %v", err)
	}
	if got := server.RequestCount(); got != 1 {
		t.Errorf("expected token source to reuse the cache, got %d requests", got)
	}
}

func TestProvider_TokenSource_WithOAuth2Client(t *testing.T) {
	server := newMockOAuth2Server(t)
	p := newTestProvider(t, server)

	var gotAuth string
	api := testutil.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		return testutil.StaticJSONResponse(`{}`)(req)
	})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Transport: api})

	client := oauth2.NewClient(ctx, p.TokenSource(context.Background()))
	resp, err := client.Get("https://api.example.com/data")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer tok" {
		t.Errorf("expected 'Bearer tok', got %q", gotAuth)
	}
}

func TestProvider_TokenSource_Error(t *testing.T) {
	server := testutil.NewMockOAuth2Server(t, testutil.JSONResponse(http.StatusForbidden, `{}`))
	p := newTestProvider(t, server)

	//lint:ignore SA1012 intentionally verify nil context falls back to background
	//nolint:staticcheck // golangci-lint
	_, err := p.TokenSource(nil).Token()
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
