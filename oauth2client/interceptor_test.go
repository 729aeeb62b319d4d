package oauth2client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/AmmannChristian/go-tokenx/internal/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type staticProvider struct {
	token string
	err   error
	calls int
}

func (s *staticProvider) GetAccessToken(context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

func TestUnaryClientInterceptor(t *testing.T) {
	server := newMockOAuth2Server(t)
	p := newTestProvider(t, server)

	interceptor := p.UnaryClientInterceptor()
	if interceptor == nil {
		t.Fatal("interceptor should not be nil")
	}

	called := false
	invoker := func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		called = true

		md, ok := metadata.FromOutgoingContext(ctx)
		if !ok {
			t.Error("metadata not found in context")
			return nil
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) != 1 || authHeaders[0] != "Bearer tok" {
			t.Errorf("expected single 'Bearer tok' header, got %v", authHeaders)
		}
		return nil
	}

	if err := interceptor(context.Background(), "/test.Service/Method", nil, nil, nil, invoker); err != nil {
		t.Errorf("interceptor failed: %v", err)
	}
	if !called {
		t.Error("invoker was not called")
	}
}

func TestUnaryClientInterceptor_KeepsExistingMetadata(t *testing.T) {
	interceptor := UnaryClientInterceptor(&staticProvider{token: "abc"})

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "42")
	err := interceptor(ctx, "/test.Service/Method", nil, nil, nil, func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		if got := md.Get("x-request-id"); len(got) != 1 || got[0] != "42" {
			t.Errorf("expected existing metadata to survive, got %v", got)
		}
		if got := md.Get("authorization"); len(got) != 1 || got[0] != "Bearer abc" {
			t.Errorf("expected 'Bearer abc', got %v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}
}

func TestStreamClientInterceptor(t *testing.T) {
	server := newMockOAuth2Server(t)
	p := newTestProvider(t, server)

	interceptor := p.StreamClientInterceptor()
	if interceptor == nil {
		t.Fatal("interceptor should not be nil")
	}

	called := false
	streamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		called = true

		md, ok := metadata.FromOutgoingContext(ctx)
		if !ok {
			t.Error("metadata not found in context")
			return nil, nil
		}
		if got := md.Get("authorization"); len(got) != 1 || got[0] != "Bearer tok" {
			t.Errorf("expected single 'Bearer tok' header, got %v", got)
		}
		return nil, nil
	}

	if _, err := interceptor(context.Background(), &grpc.StreamDesc{}, nil, "/test.Service/Method", streamer); err != nil {
		t.Errorf("interceptor failed: %v", err)
	}
	if !called {
		t.Error("streamer was not called")
	}
}

func TestInterceptors_TokenFetchError(t *testing.T) {
	server := testutil.NewMockOAuth2Server(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("token fetch failed")
	})
	p := newTestProvider(t, server)

	err := p.UnaryClientInterceptor()(context.Background(), "/test", nil, nil, nil, func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		t.Error("invoker should not be called when token fetch fails")
		return nil
	})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport from unary interceptor, got %v", err)
	}

	_, err = p.StreamClientInterceptor()(context.Background(), &grpc.StreamDesc{}, nil, "/test", func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		t.Error("streamer should not be called when token fetch fails")
		return nil, nil
	})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport from stream interceptor, got %v", err)
	}
}

func TestInterceptors_CustomTokenProvider(t *testing.T) {
	tp := &staticProvider{err: &ProtocolError{Reason: "access_token is missing"}}

	err := UnaryClientInterceptor(tp)(context.Background(), "/test", nil, nil, nil, func(context.Context, string, interface{}, interface{}, *grpc.ClientConn, ...grpc.CallOption) error {
		return nil
	})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	if tp.calls != 1 {
		t.Errorf("expected 1 token lookup, got %d", tp.calls)
	}
}
