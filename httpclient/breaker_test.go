package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/AmmannChristian/go-tokenx/internal/testutil"
	"github.com/sony/gobreaker"
)

func statusResponse(status int) testutil.RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(http.StatusText(status))),
			Request:    req,
		}, nil
	}
}

func roundTrip(t *testing.T, rt http.RoundTripper, ctx context.Context) (*http.Response, error) {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.example.com/resource", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := rt.RoundTrip(req)
	if resp != nil {
		resp.Body.Close()
	}
	return resp, err
}

func TestBreakerTransport_OpensOnServerErrors(t *testing.T) {
	var transitions []string
	bt := newBreakerTransport(statusResponse(http.StatusServiceUnavailable), BreakerSettings{
		Name:        "api",
		MaxFailures: 2,
		Timeout:     time.Minute,
		OnStateChange: func(name, from, to string) {
			transitions = append(transitions, name+":"+from+"->"+to)
		},
	})

	for i := 0; i < 2; i++ {
		resp, err := roundTrip(t, bt, context.Background())
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("request %d: 5xx response should be passed through, got %d", i, resp.StatusCode)
		}
	}

	if bt.state() != gobreaker.StateOpen {
		t.Fatalf("expected breaker to be open, got %s", bt.state())
	}

	_, err := roundTrip(t, bt, context.Background())
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if !strings.Contains(err.Error(), "api") {
		t.Errorf("expected breaker name in error, got %v", err)
	}

	if len(transitions) != 1 || transitions[0] != "api:closed->open" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}

func TestBreakerTransport_TransportErrorsCount(t *testing.T) {
	failing := testutil.RoundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	bt := newBreakerTransport(failing, BreakerSettings{MaxFailures: 1})

	if _, err := roundTrip(t, bt, context.Background()); err == nil || errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected the underlying error first, got %v", err)
	}
	if _, err := roundTrip(t, bt, context.Background()); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerTransport_ClientErrorsDoNotTrip(t *testing.T) {
	bt := newBreakerTransport(statusResponse(http.StatusNotFound), BreakerSettings{MaxFailures: 1})

	for i := 0; i < 5; i++ {
		resp, err := roundTrip(t, bt, context.Background())
		if err != nil {
			t.Fatalf("request %d: unexpected error %v", i, err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("request %d: expected 404, got %d", i, resp.StatusCode)
		}
	}

	if bt.state() != gobreaker.StateClosed {
		t.Errorf("expected breaker to stay closed, got %s", bt.state())
	}
}

func TestBreakerTransport_CancellationDoesNotTrip(t *testing.T) {
	base := testutil.RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	bt := newBreakerTransport(base, BreakerSettings{MaxFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 3; i++ {
		if _, err := roundTrip(t, bt, ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("request %d: expected context.Canceled, got %v", i, err)
		}
	}

	if bt.state() != gobreaker.StateClosed {
		t.Errorf("expected breaker to stay closed, got %s", bt.state())
	}
}

func TestBreakerTransport_Defaults(t *testing.T) {
	bt := newBreakerTransport(statusResponse(http.StatusOK), BreakerSettings{})

	if bt.name != "httpclient" {
		t.Errorf("expected default name 'httpclient', got %q", bt.name)
	}
	if _, err := roundTrip(t, bt, context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuilder_Build_WithCircuitBreaker(t *testing.T) {
	client, err := NewBuilder().
		WithBaseTransport(statusResponse(http.StatusBadGateway)).
		WithCircuitBreaker(BreakerSettings{MaxFailures: 1}).
		WithTokenProvider(&fixedTokenProvider{token: "t"}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	resp, err := client.Get("https://api.example.com")
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	resp.Body.Close()

	_, err = client.Get("https://api.example.com")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}
