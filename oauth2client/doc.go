// Package oauth2client acquires OAuth2 access tokens for HTTP and gRPC clients.
//
// A Provider posts one Grant to a token endpoint, caches the returned access
// token and reuses it until SafetyMargin before it expires. Refresh is lazy:
// the first call after expiry fetches a new token; there is no background
// timer. Concurrent cache misses share a single request.
//
// # Features
//
//   - authorization_code, client_credentials, password, refresh_token and
//     custom grants, all served by the same fetch/cache logic
//   - Context-aware token fetching with cancellation and deadline support
//   - Additional headers on the token request only
//   - Typed errors: TransportError, ProtocolError, ConfigurationError
//   - Optional second-level Store, Prometheus Metrics and logging
//   - gRPC unary and stream client interceptors and an oauth2.TokenSource adapter
//
// # Quick Start
//
//	provider, err := oauth2client.NewProvider(
//	    "https://auth.example.com/oauth/v2/token",
//	    oauth2client.ClientCredentials("client-id", "client-secret", "openid", "profile"),
//	    oauth2client.WithLoggingEnabled(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(provider.UnaryClientInterceptor()),
//	    grpc.WithStreamInterceptor(provider.StreamClientInterceptor()),
//	)
//
//	client := &http.Client{Transport: httpclient.NewOAuth2Transport(provider, nil)}
//
// # Errors
//
// Token requests are never retried here. A TransportError (unreachable
// endpoint or non-2xx status) or ProtocolError (unusable body) leaves the
// cache untouched, so the next call simply tries again. Use errors.Is with
// ErrTransport, ErrProtocol or ErrConfiguration to classify failures.
package oauth2client
