package oauth2client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	formContentType  = "application/x-www-form-urlencoded"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20
	maxErrorBody     = 512
	flightKey        = "token"
	maxFlightJoins   = 3
)

// Logger is an interface for optional logging in Provider.
// Implementations can log token fetch events if desired.
type Logger interface {
	Printf(format string, args ...any)
}

// HTTPClient sends the token request. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenProvider returns a currently valid access token.
type TokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// Provider fetches access tokens for one grant against one token endpoint and
// caches the result until shortly before it expires. It is safe for
// concurrent use.
type Provider struct {
	tokenURL string
	grant    Grant
	headers  map[string]string

	httpClient    HTTPClient
	clientSet     bool
	defaultClient *http.Client

	logger    Logger
	store     Store
	metrics   *Metrics
	jwtExpiry bool
	now       func() time.Time

	mu     sync.RWMutex
	token  CachedToken
	flight singleflight.Group
}

var _ TokenProvider = (*Provider)(nil)

// Option is a functional option for configuring Provider.
type Option func(*Provider)

// WithHTTPClient sets the client used for token requests. Passing nil makes
// NewProvider fail.
func WithHTTPClient(client HTTPClient) Option {
	return func(p *Provider) {
		p.httpClient = client
		p.clientSet = true
	}
}

// WithAdditionalHeaders adds headers to every token request. They are never
// sent on the requests the token authorizes.
func WithAdditionalHeaders(headers map[string]string) Option {
	return func(p *Provider) {
		for k, v := range headers {
			p.headers[k] = v
		}
	}
}

// WithLogger sets a custom logger for token fetch events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
func WithLoggingEnabled() Option {
	return func(p *Provider) {
		p.logger = log.Default()
	}
}

// WithStore adds a second-level token store.
func WithStore(store Store) Option {
	return func(p *Provider) {
		p.store = store
	}
}

// WithMetrics records fetches and cache hits on m.
func WithMetrics(m *Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// WithJWTExpiry makes the provider honour the exp claim of JWT access tokens
// when it is earlier than the expiry derived from expires_in.
func WithJWTExpiry() Option {
	return func(p *Provider) {
		p.jwtExpiry = true
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvider creates a token provider for grant against tokenURL.
// Invalid configuration is reported here as a *ConfigurationError and never
// at call time.
func NewProvider(tokenURL string, grant Grant, opts ...Option) (*Provider, error) {
	if err := validateTokenURL(tokenURL); err != nil {
		return nil, err
	}
	if err := grant.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		tokenURL:      tokenURL,
		grant:         grant,
		headers:       make(map[string]string),
		defaultClient: &http.Client{Timeout: defaultTimeout},
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.clientSet && isNilClient(p.httpClient) {
		return nil, &ConfigurationError{Field: "httpClient", Reason: "must not be nil"}
	}

	return p, nil
}

func validateTokenURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ConfigurationError{Field: "tokenURL", Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ConfigurationError{Field: "tokenURL", Reason: "is not a valid URL"}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: "tokenURL", Reason: "must be an absolute http(s) URL"}
	}
	return nil
}

func isNilClient(c HTTPClient) bool {
	if c == nil {
		return true
	}
	hc, ok := c.(*http.Client)
	return ok && hc == nil
}

// GetAccessToken returns a valid access token, fetching one if the cached
// token is missing or within SafetyMargin of expiry. The context bounds the
// token request.
func (p *Provider) GetAccessToken(ctx context.Context) (string, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// Token is GetAccessToken returning the effective expiry as well.
func (p *Provider) Token(ctx context.Context) (CachedToken, error) {
	if p == nil {
		return CachedToken{}, &ConfigurationError{Field: "provider", Reason: "is nil"}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Fast path: check if we have a valid token without write lock
	if tok, ok := p.cached(); ok {
		p.metrics.cacheHit()
		return tok, nil
	}

	// Concurrent misses share one fetch. A follower that received the
	// leader's cancellation while its own context is live joins again.
	for attempt := 1; ; attempt++ {
		var led bool
		ch := p.flight.DoChan(flightKey, func() (any, error) {
			led = true
			return p.acquire(ctx)
		})

		select {
		case <-ctx.Done():
			// A flight that finished as ctx ended has already cached its token.
			select {
			case res := <-ch:
				if res.Err == nil {
					return res.Val.(CachedToken), nil
				}
			default:
			}
			if tok, ok := p.cached(); ok {
				return tok, nil
			}
			return CachedToken{}, &TransportError{Err: ctx.Err()}
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(CachedToken), nil
			}
			if !led && ctx.Err() == nil && isContextError(res.Err) && attempt < maxFlightJoins {
				continue
			}
			return CachedToken{}, res.Err
		}
	}
}

// Invalidate drops the in-memory token so the next call fetches a new one.
// A configured Store is not cleared.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.token = CachedToken{}
	p.mu.Unlock()
}

func (p *Provider) cached() (CachedToken, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token, p.token.Valid(p.now())
}

func (p *Provider) setToken(tok CachedToken) {
	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
}

func (p *Provider) acquire(ctx context.Context) (CachedToken, error) {
	// Double-check: another flight may have finished since the fast path.
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	if tok, ok := p.loadStored(ctx); ok {
		p.setToken(tok)
		return tok, nil
	}

	tok, err := p.fetch(ctx)
	if err != nil {
		return CachedToken{}, err
	}

	p.setToken(tok)
	p.saveStored(ctx, tok)

	return tok, nil
}

func (p *Provider) loadStored(ctx context.Context) (CachedToken, bool) {
	if p.store == nil {
		return CachedToken{}, false
	}
	tok, found, err := p.store.Load(ctx)
	if err != nil {
		p.logf("oauth2client: token store load failed: %v", err)
		return CachedToken{}, false
	}
	if !found || !tok.Valid(p.now()) {
		return CachedToken{}, false
	}
	p.metrics.cacheHit()
	return tok, true
}

func (p *Provider) saveStored(ctx context.Context, tok CachedToken) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(ctx, tok); err != nil {
		p.logf("oauth2client: token store save failed: %v", err)
	}
}

// fetch performs one token request. It never touches the cache.
func (p *Provider) fetch(ctx context.Context) (CachedToken, error) {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(p.grant.Values().Encode()))
	if err != nil {
		return CachedToken{}, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", formContentType)

	p.logf("oauth2client: requesting %s token from %s", p.grant.describe(), p.tokenURL)

	resp, err := p.client(ctx).Do(req)
	if err != nil {
		p.metrics.observe(resultTransportError, time.Since(started))
		return CachedToken{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		p.metrics.observe(resultTransportError, time.Since(started))
		return CachedToken{}, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.metrics.observe(resultTransportError, time.Since(started))
		return CachedToken{}, newStatusError(resp.StatusCode, body)
	}

	value, lifetime, err := parseTokenResponse(body)
	if err != nil {
		p.metrics.observe(resultProtocolError, time.Since(started))
		return CachedToken{}, err
	}
	p.metrics.observe(resultSuccess, time.Since(started))

	expiresAt := p.now().Add(lifetime - SafetyMargin)
	if p.jwtExpiry {
		if exp, ok := jwtExpiry(value); ok {
			if capped := exp.Add(-SafetyMargin); capped.Before(expiresAt) {
				expiresAt = capped
			}
		}
	}

	p.logf("oauth2client: obtained new access token (lifetime %s, refresh after %s)", lifetime, expiresAt.Format(time.RFC3339))

	return CachedToken{Value: value, ExpiresAt: expiresAt}, nil
}

// client picks the configured client, then an *http.Client carried in ctx
// under oauth2.HTTPClient, then the default.
func (p *Provider) client(ctx context.Context) HTTPClient {
	if p.httpClient != nil {
		return p.httpClient
	}
	if hc, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && hc != nil {
		return hc
	}
	return p.defaultClient
}

func (p *Provider) logf(format string, args ...any) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}

func newStatusError(status int, body []byte) *TransportError {
	te := &TransportError{StatusCode: status}

	var oauthErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &oauthErr) == nil {
		te.OAuthError = oauthErr.Error
		te.Description = oauthErr.Description
	}

	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	te.Body = string(body)
	te.Err = errors.New(http.StatusText(status))
	return te
}

// parseTokenResponse extracts access_token and the lifetime from expires_in.
func parseTokenResponse(body []byte) (string, time.Duration, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, &ProtocolError{Reason: "response is not a JSON object", Err: err}
	}

	raw, ok := payload["access_token"]
	if !ok {
		return "", 0, &ProtocolError{Reason: "access_token is missing"}
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", 0, &ProtocolError{Reason: "access_token is not a string", Err: err}
	}
	if value == "" {
		return "", 0, &ProtocolError{Reason: "access_token is empty"}
	}

	return value, parseExpiresIn(payload["expires_in"]), nil
}

// parseExpiresIn accepts a JSON number or numeric string and falls back to
// DefaultExpiresIn for anything else.
func parseExpiresIn(raw json.RawMessage) time.Duration {
	if len(raw) == 0 {
		return DefaultExpiresIn
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return DefaultExpiresIn
	}

	secs, err := n.Float64()
	if err != nil || math.IsNaN(secs) {
		return DefaultExpiresIn
	}

	// Negative lifetimes count as zero.
	const maxSecs = float64(math.MaxInt64 / int64(time.Second))
	secs = math.Max(math.Min(secs, maxSecs), 0)
	return time.Duration(secs) * time.Second
}

// jwtExpiry reads the exp claim without verifying the signature; the token is
// only inspected, never trusted.
func jwtExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
