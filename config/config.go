// Package config loads token provider settings from files, environment
// variables and command line flags through viper.
//
// Every key can be set in a YAML, JSON or TOML file or as an environment
// variable with the OAUTH2_ prefix, e.g. OAUTH2_TOKEN_URL. Map valued keys
// (headers, parameters) read JSON objects from the environment.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AmmannChristian/go-tokenx/oauth2client"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for every key.
const EnvPrefix = "OAUTH2"

// Configuration keys.
const (
	KeyTokenURL     = "token_url"
	KeyGrantType    = "grant_type"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyCode         = "code"
	KeyRedirectURI  = "redirect_uri"
	KeyUsername     = "username"
	KeyPassword     = "password"
	KeyRefreshToken = "refresh_token"
	KeyScopes       = "scopes"
	KeyHeaders      = "headers"
	KeyParameters   = "parameters"
)

// Keys lists every configuration key.
var Keys = []string{
	KeyTokenURL, KeyGrantType, KeyClientID, KeyClientSecret, KeyCode, KeyRedirectURI,
	KeyUsername, KeyPassword, KeyRefreshToken, KeyScopes, KeyHeaders, KeyParameters,
}

// Config holds everything needed to build an oauth2client.Provider.
type Config struct {
	TokenURL     string
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	Username     string
	Password     string
	RefreshToken string
	Scopes       []string
	// Headers are sent on token requests only.
	Headers map[string]string
	// Parameters is the request body of a custom grant.
	Parameters map[string]string
}

// NewViper returns a viper instance reading OAUTH2_* environment variables,
// with grant_type defaulting to client_credentials.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyGrantType, string(oauth2client.GrantClientCredentials))
	return v
}

// Load reads file into v when file is not empty and returns the resulting
// configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file %q: %w", file, err)
		}
	}
	return FromViper(v), nil
}

// FromViper builds a Config from the values currently visible in v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		TokenURL:     strings.TrimSpace(v.GetString(KeyTokenURL)),
		GrantType:    strings.TrimSpace(v.GetString(KeyGrantType)),
		ClientID:     v.GetString(KeyClientID),
		ClientSecret: v.GetString(KeyClientSecret),
		Code:         v.GetString(KeyCode),
		RedirectURI:  v.GetString(KeyRedirectURI),
		Username:     v.GetString(KeyUsername),
		Password:     v.GetString(KeyPassword),
		RefreshToken: v.GetString(KeyRefreshToken),
		Scopes:       parseScopes(v.Get(KeyScopes)),
		Headers:      v.GetStringMapString(KeyHeaders),
		Parameters:   v.GetStringMapString(KeyParameters),
	}
}

// Grant maps GrantType to an oauth2client.Grant. An empty GrantType means
// client_credentials.
func (c *Config) Grant() (oauth2client.Grant, error) {
	switch oauth2client.GrantType(strings.ToLower(c.GrantType)) {
	case "", oauth2client.GrantClientCredentials:
		return oauth2client.ClientCredentials(c.ClientID, c.ClientSecret, c.Scopes...), nil
	case oauth2client.GrantAuthorizationCode:
		return oauth2client.AuthorizationCode(c.ClientID, c.ClientSecret, c.Code, c.RedirectURI, c.Scopes...), nil
	case oauth2client.GrantPassword:
		return oauth2client.Password(c.ClientID, c.ClientSecret, c.Username, c.Password, c.Scopes...), nil
	case oauth2client.GrantRefreshToken:
		return oauth2client.RefreshToken(c.ClientID, c.ClientSecret, c.RefreshToken, c.Scopes...), nil
	case oauth2client.GrantCustom:
		return oauth2client.Custom(c.Parameters), nil
	default:
		return oauth2client.Grant{}, &oauth2client.ConfigurationError{
			Field:  KeyGrantType,
			Reason: fmt.Sprintf("has unsupported value %q", c.GrantType),
		}
	}
}

// NewProvider creates a provider from c. Configured headers are added before
// opts, so an explicit oauth2client.WithAdditionalHeaders can override them.
func (c *Config) NewProvider(opts ...oauth2client.Option) (*oauth2client.Provider, error) {
	grant, err := c.Grant()
	if err != nil {
		return nil, err
	}

	if len(c.Headers) > 0 {
		opts = append([]oauth2client.Option{oauth2client.WithAdditionalHeaders(c.Headers)}, opts...)
	}

	return oauth2client.NewProvider(c.TokenURL, grant, opts...)
}

// Fields returns the configuration with secrets masked, for structured
// logging.
func (c *Config) Fields() map[string]string {
	fields := map[string]string{
		KeyTokenURL:  c.TokenURL,
		KeyGrantType: c.GrantType,
		KeyClientID:  c.ClientID,
		KeyScopes:    strings.Join(c.Scopes, " "),
	}
	for key, secret := range map[string]string{
		KeyClientSecret: c.ClientSecret,
		KeyCode:         c.Code,
		KeyPassword:     c.Password,
		KeyRefreshToken: c.RefreshToken,
	} {
		if secret != "" {
			fields[key] = "***"
		}
	}
	if len(c.Headers) > 0 {
		names := make([]string, 0, len(c.Headers))
		for name := range c.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		fields[KeyHeaders] = strings.Join(names, ",")
	}
	return fields
}

// parseScopes accepts a list or a string separated by spaces or commas.
func parseScopes(raw any) []string {
	var parts []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
	default:
		parts = []string{fmt.Sprint(v)}
	}

	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	if len(scopes) == 0 {
		return nil
	}
	return scopes
}
