package oauth2client

import (
	"context"

	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx      context.Context
	provider *Provider
}

// TokenSource adapts the provider to oauth2.TokenSource, so it can back
// oauth2.NewClient or any other x/oauth2 consumer. ctx is used for every
// token request the source makes.
func (p *Provider) TokenSource(ctx context.Context) oauth2.TokenSource {
	if ctx == nil {
		ctx = context.Background()
	}
	return &tokenSource{ctx: ctx, provider: p}
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.provider.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.Value,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresAt,
	}, nil
}
