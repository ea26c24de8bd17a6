package provider

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleClient resolves Google identities through the OAuth2 userinfo API.
type GoogleClient struct {
	exchanger
	apiURL string
}

// NewGoogleClient creates a Google identity provider client.
func NewGoogleClient(creds Credentials, opts ...Option) *GoogleClient {
	o := buildOptions(google.Endpoint, "", opts)
	return &GoogleClient{
		exchanger: newExchanger(creds, o, googleoauth2.UserinfoEmailScope, googleoauth2.UserinfoProfileScope),
		apiURL:    o.apiURL,
	}
}

func (c *GoogleClient) Name() string { return Google }

func (c *GoogleClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*Profile, error) {
	client, err := c.exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	serviceOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if c.apiURL != "" {
		serviceOpts = append(serviceOpts, option.WithEndpoint(c.apiURL+"/"))
	}

	svc, err := googleoauth2.NewService(ctx, serviceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create google oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch google userinfo: %w", err)
	}

	return newProfile(Google, info.Id, info.Email, info.Name)
}
