package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures the circuit breaker installed by
// Builder.WithCircuitBreaker. Zero values fall back to the defaults below.
type BreakerSettings struct {
	// Name identifies the breaker in errors and state change callbacks.
	// Default "httpclient".
	Name string

	// MaxFailures is the number of consecutive failures that opens the
	// breaker. Default 5.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before letting a probe
	// through. Default 30s.
	Timeout time.Duration

	// MaxRequests is the number of probes allowed while half-open. Default 1.
	MaxRequests uint32

	// OnStateChange is called whenever the breaker changes state.
	OnStateChange func(name, from, to string)
}

// ErrCircuitOpen is returned, wrapped, when the breaker rejects a request.
var ErrCircuitOpen = errors.New("httpclient: circuit breaker is open")

type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server responded %d", e.status)
}

type breakerTransport struct {
	base    http.RoundTripper
	name    string
	breaker *gobreaker.CircuitBreaker
}

func newBreakerTransport(base http.RoundTripper, s BreakerSettings) *breakerTransport {
	if s.Name == "" {
		s.Name = "httpclient"
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the server.
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if s.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			s.OnStateChange(name, from.String(), to.String())
		}
	}

	return &breakerTransport{
		base:    base,
		name:    s.Name,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// RoundTrip counts transport errors and 5xx responses as failures. A 5xx
// response is still returned to the caller unchanged.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &serverError{status: resp.StatusCode}
		}
		return resp, nil
	})

	var srvErr *serverError
	switch {
	case err == nil:
		return result.(*http.Response), nil
	case errors.As(err, &srvErr):
		return result.(*http.Response), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w (%s): %v", ErrCircuitOpen, t.name, err)
	default:
		return nil, err
	}
}

func (t *breakerTransport) state() gobreaker.State {
	return t.breaker.State()
}
