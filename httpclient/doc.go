// Package httpclient offers HTTP client construction helpers with OAuth2 authentication and TLS/mTLS options.
//
// It provides a fluent Builder that can create an http.Client with automatic Bearer token injection from any
// oauth2client.TokenProvider, configurable TLS (custom CA, mTLS, insecure for tests), timeouts, base transports,
// redirect handling, a circuit breaker and OpenTelemetry tracing. OAuth2Transport can wrap any RoundTripper.
//
// # Features
//
//   - Fluent builder for http.Client with optional OAuth2 token injection
//   - TLS 1.2+ by default, with custom CA/mTLS and optional InsecureSkipVerify
//   - Custom timeouts, base transport override, and redirect disabling
//   - Circuit breaker (sony/gobreaker) and otelhttp tracing, both opt-in
//   - Reusable OAuth2Transport and Middleware for manual composition
//
// # Quick Start
//
//	client, err := httpclient.NewBuilder().
//	    WithOAuth2(
//	        "https://auth.example.com/oauth/v2/token",
//	        oauth2client.ClientCredentials("client-id", "client-secret", "openid", "profile"),
//	    ).
//	    WithTLS("/path/to/ca.crt", "", "").
//	    WithTimeout(60 * time.Second).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get("https://api.example.com/data")
//
// # Manual Transport Wrapping
//
//	transport := httpclient.NewOAuth2Transport(provider, nil)
//	client := &http.Client{Transport: transport}
//
// Headers configured with oauth2client.WithAdditionalHeaders go to the token
// endpoint only and never appear on the requests sent through this package.
//
// All components are safe for concurrent use if the provided TokenProvider is.
package httpclient
