package provider

import (
	"context"

	"golang.org/x/oauth2/facebook"
)

const facebookAPIURL = "https://graph.facebook.com"

// FacebookClient resolves Facebook identities through the Graph API.
type FacebookClient struct {
	exchanger
	apiURL string
}

// NewFacebookClient creates a Facebook identity provider client.
func NewFacebookClient(creds Credentials, opts ...Option) *FacebookClient {
	o := buildOptions(facebook.Endpoint, facebookAPIURL, opts)
	return &FacebookClient{
		exchanger: newExchanger(creds, o, "email", "public_profile"),
		apiURL:    o.apiURL,
	}
}

func (c *FacebookClient) Name() string { return Facebook }

func (c *FacebookClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*Profile, error) {
	client, err := c.exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	var me struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, client, c.apiURL+"/me?fields=id,name,email", &me); err != nil {
		return nil, err
	}

	return newProfile(Facebook, me.ID, me.Email, me.Name)
}
