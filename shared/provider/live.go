package provider

import (
	"context"

	"golang.org/x/oauth2/microsoft"
)

const microsoftGraphURL = "https://graph.microsoft.com/v1.0"

// LiveClient resolves Microsoft accounts through Microsoft Graph.
type LiveClient struct {
	exchanger
	apiURL string
}

// NewLiveClient creates a Microsoft account identity provider client.
func NewLiveClient(creds Credentials, opts ...Option) *LiveClient {
	o := buildOptions(microsoft.AzureADEndpoint("common"), microsoftGraphURL, opts)
	return &LiveClient{
		exchanger: newExchanger(creds, o, "openid", "email", "profile", "User.Read"),
		apiURL:    o.apiURL,
	}
}

func (c *LiveClient) Name() string { return Live }

func (c *LiveClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*Profile, error) {
	client, err := c.exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	var me struct {
		ID                string `json:"id"`
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := getJSON(ctx, client, c.apiURL+"/me", &me); err != nil {
		return nil, err
	}

	email := me.Mail
	if email == "" {
		email = me.UserPrincipalName
	}

	return newProfile(Live, me.ID, email, me.DisplayName)
}
