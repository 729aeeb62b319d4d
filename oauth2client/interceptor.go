package oauth2client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientInterceptor returns a gRPC unary client interceptor that
// adds "authorization: Bearer <token>" to the outgoing metadata.
//
// If token fetch fails, the RPC is not invoked. The RPC context bounds the
// token request.
//
// Usage:
//
//	conn, err := grpc.NewClient(
//	    "server:9090",
//	    grpc.WithUnaryInterceptor(oauth2client.UnaryClientInterceptor(provider)),
//	)
func UnaryClientInterceptor(tp TokenProvider) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token, err := tp.GetAccessToken(ctx)
		if err != nil {
			return fmt.Errorf("oauth2client: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor is the streaming counterpart of
// UnaryClientInterceptor. If token fetch fails, the stream is not created.
func StreamClientInterceptor(tp TokenProvider) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		token, err := tp.GetAccessToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("oauth2client: failed to get token: %w", err)
		}

		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

		return streamer(ctx, desc, cc, method, opts...)
	}
}

// UnaryClientInterceptor is shorthand for UnaryClientInterceptor(p).
func (p *Provider) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return UnaryClientInterceptor(p)
}

// StreamClientInterceptor is shorthand for StreamClientInterceptor(p).
func (p *Provider) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return StreamClientInterceptor(p)
}
