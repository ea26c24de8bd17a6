package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/oauth2"
)

const (
	GitHub   = "github"
	Google   = "google"
	Facebook = "facebook"
	Live     = "live"
)

var (
	ErrProviderNotFound = errors.New("identity provider not found")
	ErrMissingProfile   = errors.New("identity provider returned no user id")
	ErrExchangeFailed   = errors.New("authorization code exchange failed")
)

// Profile is the identity an external provider vouches for.
type Profile struct {
	ProviderName   string
	ProviderUserID string
	Email          string
	DisplayName    string
}

// Client exchanges an authorization code for the caller's profile.
type Client interface {
	Name() string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*Profile, error)
}

// Credentials are the OAuth application credentials of a provider.
type Credentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Enabled reports whether the provider has been configured.
func (c Credentials) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Registry selects a Client by provider name.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates a Registry holding clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[strings.ToLower(c.Name())] = c
	}
	return r
}

// Get returns the client registered under name.
func (r *Registry) Get(name string) (Client, error) {
	c, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return c, nil
}

// Names lists the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option customises a provider client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	endpoint   *oauth2.Endpoint
	apiURL     string
}

// WithHTTPClient sets the HTTP client used for the token exchange and profile calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithEndpoint overrides the provider's OAuth endpoint.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(o *options) { o.endpoint = &e }
}

// WithAPIURL overrides the base URL of the provider's profile API.
func WithAPIURL(url string) Option {
	return func(o *options) { o.apiURL = strings.TrimRight(url, "/") }
}

func buildOptions(defaultEndpoint oauth2.Endpoint, defaultAPIURL string, opts []Option) options {
	o := options{apiURL: defaultAPIURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.endpoint == nil {
		o.endpoint = &defaultEndpoint
	}
	return o
}

// exchanger performs the authorization code grant shared by every provider.
type exchanger struct {
	config     oauth2.Config
	httpClient *http.Client
}

func newExchanger(creds Credentials, o options, scopes ...string) exchanger {
	return exchanger{
		config: oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     *o.endpoint,
			Scopes:       scopes,
		},
		httpClient: o.httpClient,
	}
}

// exchange trades code for a token and returns an HTTP client authorised with it.
func (e exchanger) exchange(ctx context.Context, code, redirectURI string) (*http.Client, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: missing code", ErrExchangeFailed)
	}
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}

	cfg := e.config
	cfg.RedirectURL = redirectURI

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	return cfg.Client(ctx, token), nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile request %s: status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode profile: %w", err)
	}

	return nil
}

func newProfile(name, userID, email, displayName string) (*Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingProfile
	}

	return &Profile{
		ProviderName:   name,
		ProviderUserID: userID,
		Email:          strings.TrimSpace(email),
		DisplayName:    strings.TrimSpace(displayName),
	}, nil
}
