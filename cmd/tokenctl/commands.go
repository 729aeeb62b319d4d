package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AmmannChristian/go-tokenx/config"
	"github.com/AmmannChristian/go-tokenx/httpclient"
	"github.com/AmmannChristian/go-tokenx/oauth2client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"token-url":     config.KeyTokenURL,
	"grant-type":    config.KeyGrantType,
	"client-id":     config.KeyClientID,
	"client-secret": config.KeyClientSecret,
	"code":          config.KeyCode,
	"redirect-uri":  config.KeyRedirectURI,
	"username":      config.KeyUsername,
	"password":      config.KeyPassword,
	"refresh-token": config.KeyRefreshToken,
	"scopes":        config.KeyScopes,
	"header":        config.KeyHeaders,
	"param":         config.KeyParameters,
}

type rootOptions struct {
	v          *viper.Viper
	logger     *zap.Logger
	level      zap.AtomicLevel
	configFile string
	verbose    bool
}

func newRootCommand(logger *zap.Logger, level zap.AtomicLevel) *cobra.Command {
	opts := &rootOptions{
		v:      config.NewViper(),
		logger: logger,
		level:  level,
	}

	cmd := &cobra.Command{
		Use:           "tokenctl",
		Short:         "tokenctl obtains OAuth2 access tokens and calls APIs with them",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if opts.verbose {
				opts.level.SetLevel(zapcore.DebugLevel)
			}
		},
		Example: `
  # Print a client credentials token
  tokenctl token --token-url https://auth.example.com/token --client-id app --client-secret s3cret

  # Same, configured through the environment
  OAUTH2_TOKEN_URL=https://auth.example.com/token OAUTH2_CLIENT_ID=app OAUTH2_CLIENT_SECRET=s3cret tokenctl token --json

  # Call an API with a bearer token
  tokenctl get https://api.example.com/v1/me --config tokenx.yaml
`,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging, including token requests")
	flags.String("token-url", "", "token endpoint URL")
	flags.String("grant-type", string(oauth2client.GrantClientCredentials), "client_credentials, authorization_code, password, refresh_token or custom")
	flags.String("client-id", "", "OAuth2 client ID")
	flags.String("client-secret", "", "OAuth2 client secret")
	flags.String("code", "", "authorization code")
	flags.String("redirect-uri", "", "redirect URI used to obtain the authorization code")
	flags.String("username", "", "resource owner username")
	flags.String("password", "", "resource owner password")
	flags.String("refresh-token", "", "refresh token")
	flags.StringSlice("scopes", nil, "requested scopes")
	flags.StringToString("header", nil, "extra header for token requests (name=value)")
	flags.StringToString("param", nil, "request parameter of a custom grant (name=value)")

	bindFlags(opts.v, flags)

	cmd.AddCommand(newTokenCommand(opts), newGetCommand(opts))
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := v.BindPFlag(key, flag); err != nil {
			panic(err)
		}
	}
}

func (o *rootOptions) provider() (*oauth2client.Provider, error) {
	cfg, err := config.Load(o.v, o.configFile)
	if err != nil {
		return nil, err
	}

	fields := make([]zap.Field, 0, len(cfg.Fields()))
	for k, v := range cfg.Fields() {
		fields = append(fields, zap.String(k, v))
	}
	o.logger.Debug("loaded configuration", fields...)

	var providerOpts []oauth2client.Option
	if o.verbose {
		providerOpts = append(providerOpts, oauth2client.WithLogger(zap.NewStdLog(o.logger.Named("oauth2client"))))
	}
	return cfg.NewProvider(providerOpts...)
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.provider()
			if err != nil {
				return err
			}

			tok, err := p.Token(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(tok)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.Value)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print access_token and expires_at as JSON")
	return cmd
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	var (
		timeout  time.Duration
		caFile   string
		insecure bool
		breaker  bool
	)

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "GET a URL with a bearer token and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.provider()
			if err != nil {
				return err
			}

			b := httpclient.NewBuilder().
				WithTokenProvider(p).
				WithTimeout(timeout)
			if caFile != "" {
				b = b.WithTLS(caFile, "", "")
			}
			if insecure {
				b = b.WithInsecureSkipVerify()
			}
			if breaker {
				b = b.WithCircuitBreaker(httpclient.BreakerSettings{Name: "tokenctl"})
			}
			if opts.verbose {
				b = b.WithLogger(zap.NewStdLog(opts.logger.Named("httpclient")))
			}

			client, err := b.Build()
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, args[0], nil)
			if err != nil {
				return fmt.Errorf("invalid URL %q: %w", args[0], err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			opts.logger.Debug("response received", zap.String("url", args[0]), zap.Int("status", resp.StatusCode))

			if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
				return fmt.Errorf("read response body: %w", err)
			}
			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("GET %s: %s", args[0], resp.Status)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	flags.StringVar(&caFile, "ca", "", "CA certificate for the API server")
	flags.BoolVar(&insecure, "insecure", false, "skip TLS verification of the API server")
	flags.BoolVar(&breaker, "circuit-breaker", false, "fail fast after repeated API failures")
	return cmd
}
