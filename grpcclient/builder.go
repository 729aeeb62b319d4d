package grpcclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/AmmannChristian/go-tokenx/oauth2client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Builder provides a fluent interface for constructing gRPC client connections
// with optional OAuth2 authentication and TLS/mTLS support.
type Builder struct {
	address string

	// OAuth2 configuration
	oauth2Enabled  bool
	oauth2TokenURL string
	oauth2Grant    oauth2client.Grant
	oauth2Opts     []oauth2client.Option
	tokenProvider  oauth2client.TokenProvider
	prefetch       bool

	// TLS configuration
	tlsEnabled    bool
	tlsCAFile     string
	tlsCertFile   string
	tlsKeyFile    string
	tlsServerName string

	// Additional dial options
	dialOpts []grpc.DialOption
}

// NewBuilder creates a new gRPC client builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithAddress sets the server address (e.g., "server.example.com:9090").
func (b *Builder) WithAddress(address string) *Builder {
	b.address = address
	return b
}

// WithOAuth2 enables OAuth2 authentication. The provider is created, and its
// configuration validated, by Build.
//
// Parameters:
//   - tokenURL: OAuth2 token endpoint (e.g., "https://auth.example.com/oauth/v2/token")
//   - grant: Token request parameters, e.g. oauth2client.ClientCredentials(...)
//   - opts: Provider options such as oauth2client.WithAdditionalHeaders
func (b *Builder) WithOAuth2(tokenURL string, grant oauth2client.Grant, opts ...oauth2client.Option) *Builder {
	b.oauth2Enabled = true
	b.oauth2TokenURL = tokenURL
	b.oauth2Grant = grant
	b.oauth2Opts = opts
	b.tokenProvider = nil
	return b
}

// WithTokenProvider authenticates calls with an existing token provider,
// for example one shared with an HTTP client.
func (b *Builder) WithTokenProvider(tp oauth2client.TokenProvider) *Builder {
	b.oauth2Enabled = false
	b.tokenProvider = tp
	return b
}

// WithTokenPrefetch makes Build obtain a token before creating the
// connection, so bad credentials fail at startup instead of on the first RPC.
func (b *Builder) WithTokenPrefetch() *Builder {
	b.prefetch = true
	return b
}

// WithTLS enables TLS for the connection.
//
// Parameters:
//   - caFile: Path to CA certificate for server verification (required)
//   - certFile: Path to client certificate for mTLS (optional, must be paired with keyFile)
//   - keyFile: Path to client private key for mTLS (optional, must be paired with certFile)
//   - serverName: Expected server name for TLS verification (optional, overrides SNI)
func (b *Builder) WithTLS(caFile, certFile, keyFile, serverName string) *Builder {
	b.tlsEnabled = true
	b.tlsCAFile = caFile
	b.tlsCertFile = certFile
	b.tlsKeyFile = keyFile
	b.tlsServerName = serverName
	return b
}

// WithDialOptions adds custom gRPC dial options.
// These options are applied after OAuth2 and TLS options.
func (b *Builder) WithDialOptions(opts ...grpc.DialOption) *Builder {
	b.dialOpts = append(b.dialOpts, opts...)
	return b
}

// Build constructs the gRPC client connection with the configured options.
//
// Returns:
//   - *grpc.ClientConn: Established gRPC connection
//   - error: Error if connection fails
func (b *Builder) Build(ctx context.Context) (*grpc.ClientConn, error) {
	if b.address == "" {
		return nil, errors.New("grpcclient: server address is required")
	}

	var opts []grpc.DialOption

	tp, err := b.resolveTokenProvider()
	if err != nil {
		return nil, err
	}

	// Add OAuth2 interceptors if enabled
	if tp != nil {
		if b.prefetch {
			if _, err := tp.GetAccessToken(ctx); err != nil {
				return nil, fmt.Errorf("grpcclient: token prefetch failed: %w", err)
			}
		}

		opts = append(opts,
			grpc.WithUnaryInterceptor(oauth2client.UnaryClientInterceptor(tp)),
			grpc.WithStreamInterceptor(oauth2client.StreamClientInterceptor(tp)),
		)
	}

	// Add TLS credentials if enabled
	if b.tlsEnabled {
		tlsConfig, err := b.buildTLSConfig()
		if err != nil {
			return nil, fmt.Errorf("grpcclient: TLS config failed: %w", err)
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		// Default to TLS with system roots to avoid accidental plaintext connections.
		// Set MinVersion to TLS 1.2 for secure defaults.
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			MinVersion: tls.VersionTLS12,
		})))
	}

	// Add custom dial options
	opts = append(opts, b.dialOpts...)

	// Create connection
	conn, err := grpc.NewClient(b.address, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: dial failed: %w", err)
	}

	return conn, nil
}

// resolveTokenProvider returns the configured provider, creating one from
// WithOAuth2 settings. It returns nil when OAuth2 is not configured.
func (b *Builder) resolveTokenProvider() (oauth2client.TokenProvider, error) {
	if b.tokenProvider != nil {
		if p, ok := b.tokenProvider.(*oauth2client.Provider); ok && p == nil {
			return nil, errors.New("grpcclient: TokenProvider is nil")
		}
		return b.tokenProvider, nil
	}
	if !b.oauth2Enabled {
		return nil, nil
	}

	provider, err := oauth2client.NewProvider(b.oauth2TokenURL, b.oauth2Grant, b.oauth2Opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcclient: OAuth2 config failed: %w", err)
	}
	return provider, nil
}

// buildTLSConfig constructs the TLS configuration for the gRPC connection.
func (b *Builder) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	// Load CA certificate for server verification
	if b.tlsCAFile != "" {
		caCert, err := os.ReadFile(b.tlsCAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	// Load client certificate for mTLS (if both cert and key are provided)
	if b.tlsCertFile != "" && b.tlsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(b.tlsCertFile, b.tlsKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	} else if b.tlsCertFile != "" || b.tlsKeyFile != "" {
		return nil, errors.New("both TLS cert and key files must be provided for mTLS")
	}

	// Set server name override if provided
	if b.tlsServerName != "" {
		tlsConfig.ServerName = b.tlsServerName
	}

	return tlsConfig, nil
}
