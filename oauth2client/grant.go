package oauth2client

import (
	"net/url"
	"strings"
)

// GrantType identifies the OAuth2 flow a Grant performs.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantClientCredentials GrantType = "client_credentials"
	GrantPassword          GrantType = "password"
	GrantRefreshToken      GrantType = "refresh_token"
	// GrantCustom sends a caller-supplied parameter set verbatim.
	GrantCustom GrantType = "custom"
)

// Grant is a prebuilt token request body. All grant types share the same
// fetch and cache logic and differ only in these parameters.
type Grant struct {
	kind     GrantType
	params   map[string]string
	required []string
}

// AuthorizationCode builds an authorization_code grant.
func AuthorizationCode(clientID, clientSecret, code, redirectURI string, scopes ...string) Grant {
	g := newGrant(GrantAuthorizationCode, clientID, clientSecret, scopes)
	g.params["code"] = code
	g.params["redirect_uri"] = redirectURI
	g.required = append(g.required, "code", "redirect_uri")
	return g
}

// ClientCredentials builds a client_credentials grant.
func ClientCredentials(clientID, clientSecret string, scopes ...string) Grant {
	return newGrant(GrantClientCredentials, clientID, clientSecret, scopes)
}

// Password builds a resource owner password credentials grant.
func Password(clientID, clientSecret, username, password string, scopes ...string) Grant {
	g := newGrant(GrantPassword, clientID, clientSecret, scopes)
	g.params["username"] = username
	g.params["password"] = password
	g.required = append(g.required, "username", "password")
	return g
}

// RefreshToken builds a refresh_token grant.
func RefreshToken(clientID, clientSecret, refreshToken string, scopes ...string) Grant {
	g := newGrant(GrantRefreshToken, clientID, clientSecret, scopes)
	g.params["refresh_token"] = refreshToken
	g.required = append(g.required, "refresh_token")
	return g
}

// Custom builds a grant that posts params verbatim. The map is copied.
func Custom(params map[string]string) Grant {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return Grant{kind: GrantCustom, params: copied}
}

func newGrant(kind GrantType, clientID, clientSecret string, scopes []string) Grant {
	g := Grant{
		kind: kind,
		params: map[string]string{
			"grant_type":    string(kind),
			"client_id":     clientID,
			"client_secret": clientSecret,
		},
		required: []string{"client_id", "client_secret"},
	}
	if scope := joinScopes(scopes); scope != "" {
		g.params["scope"] = scope
	}
	return g
}

// joinScopes space-joins scopes, dropping blank entries.
func joinScopes(scopes []string) string {
	kept := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}

// Type returns the grant type. Custom grants report GrantCustom regardless of
// the grant_type parameter they carry.
func (g Grant) Type() GrantType { return g.kind }

// Values returns a fresh copy of the request parameters.
func (g Grant) Values() url.Values {
	values := make(url.Values, len(g.params))
	for k, v := range g.params {
		values.Set(k, v)
	}
	return values
}

// Validate checks that every parameter the grant type requires is present.
func (g Grant) Validate() error {
	if g.kind == "" {
		return &ConfigurationError{Field: "grant", Reason: "is not configured"}
	}
	if g.kind == GrantCustom && len(g.params) == 0 {
		return &ConfigurationError{Field: "parameters", Reason: "must not be empty"}
	}
	for _, key := range g.required {
		if g.params[key] == "" {
			return &ConfigurationError{Field: key, Reason: "is required for " + string(g.kind) + " grant"}
		}
	}
	return nil
}

// describe names the grant for log lines without exposing parameter values.
func (g Grant) describe() string {
	if g.kind == GrantCustom {
		if gt := g.params["grant_type"]; gt != "" {
			return gt
		}
	}
	return string(g.kind)
}
