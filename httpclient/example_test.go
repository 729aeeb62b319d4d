package httpclient_test

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/AmmannChristian/go-tokenx/httpclient"
	"github.com/AmmannChristian/go-tokenx/oauth2client"
)

// Example calls an API through a client that fetches its own token.
func Example() {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"example-token","expires_in":3600}`))
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "api saw %q", r.Header.Get("Authorization"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := httpclient.NewBuilder().
		WithOAuth2(srv.URL+"/token", oauth2client.ClientCredentials("client-id", "client-secret")).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	resp, err := client.Get(srv.URL + "/api")
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Println(string(body))
	// Output: api saw "Bearer example-token"
}

// ExampleNewHTTPClient demonstrates the simple way to create an HTTP client.
func ExampleNewHTTPClient() {
	provider, err := oauth2client.NewProvider(
		"https://auth.example.com/oauth/v2/token",
		oauth2client.ClientCredentials("client-id", "client-secret", "openid"),
	)
	if err != nil {
		log.Fatal(err)
	}

	client := httpclient.NewHTTPClient(provider)

	fmt.Printf("Client timeout: %v\n", client.Timeout)
	// Output: Client timeout: 30s
}

// ExampleNewBuilder demonstrates using the builder pattern for HTTP clients.
func ExampleNewBuilder() {
	client, err := httpclient.NewBuilder().
		WithOAuth2("https://auth.example.com/oauth/v2/token", oauth2client.ClientCredentials("client-id", "secret", "openid")).
		WithTimeout(60 * time.Second).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Client configured with timeout: %v\n", client.Timeout)
	// Output: Client configured with timeout: 1m0s
}

// ExampleBuilder_WithOAuth2 shows that provider configuration errors surface
// from Build.
func ExampleBuilder_WithOAuth2() {
	_, err := httpclient.NewBuilder().
		WithOAuth2(
			"https://auth.example.com/oauth/v2/token",
			oauth2client.RefreshToken("my-client-id", "my-client-secret", ""),
		).
		Build()

	fmt.Println(err)
	// Output: httpclient: OAuth2 config failed: oauth2client: invalid configuration: refresh_token is required for refresh_token grant
}

// ExampleBuilder_WithTLS demonstrates TLS configuration.
func ExampleBuilder_WithTLS() {
	client, err := httpclient.NewBuilder().
		WithOAuth2("https://auth.example.com/oauth/v2/token", oauth2client.ClientCredentials("client-id", "secret", "openid")).
		WithTLS(
			"/path/to/ca.crt",     // CA certificate
			"/path/to/client.crt", // Client certificate (optional)
			"/path/to/client.key", // Client key (optional)
		).
		Build()
	if err != nil {
		// In this example, files don't exist, so we expect an error
		fmt.Println("TLS configuration attempted")
		return
	}

	fmt.Println("TLS configured")
	_ = client
	// Output: TLS configuration attempted
}

// ExampleBuilder_WithCircuitBreaker stops calling a failing upstream.
func ExampleBuilder_WithCircuitBreaker() {
	client, err := httpclient.NewBuilder().
		WithOAuth2("https://auth.example.com/oauth/v2/token", oauth2client.ClientCredentials("client-id", "secret")).
		WithCircuitBreaker(httpclient.BreakerSettings{
			Name:        "billing-api",
			MaxFailures: 3,
			Timeout:     15 * time.Second,
		}).
		WithTracing().
		Build()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Circuit breaker and tracing configured")
	_ = client
	// Output: Circuit breaker and tracing configured
}

// ExampleBuilder_WithoutRedirects demonstrates disabling redirect following.
func ExampleBuilder_WithoutRedirects() {
	client, err := httpclient.NewBuilder().
		WithOAuth2("https://auth.example.com/oauth/v2/token", oauth2client.ClientCredentials("client-id", "secret", "openid")).
		WithoutRedirects().
		Build()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Redirects disabled")
	_ = client
	// Output: Redirects disabled
}

// ExampleMiddleware composes the token transport with other RoundTripper
// middleware.
func ExampleMiddleware() {
	provider, err := oauth2client.NewProvider(
		"https://auth.example.com/oauth/v2/token",
		oauth2client.Password("client-id", "client-secret", "alice", "wonderland"),
	)
	if err != nil {
		log.Fatal(err)
	}

	authorize := httpclient.Middleware(provider)
	client := &http.Client{Transport: authorize(http.DefaultTransport)}

	fmt.Printf("Transport type: %T\n", client.Transport)
	// Output: Transport type: *httpclient.OAuth2Transport
}
