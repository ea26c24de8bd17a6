package provider

import (
	"context"
	"strconv"

	"golang.org/x/oauth2/github"
)

const githubAPIURL = "https://api.github.com"

// GitHubClient resolves GitHub identities.
type GitHubClient struct {
	exchanger
	apiURL string
}

// NewGitHubClient creates a GitHub identity provider client.
func NewGitHubClient(creds Credentials, opts ...Option) *GitHubClient {
	o := buildOptions(github.Endpoint, githubAPIURL, opts)
	return &GitHubClient{
		exchanger: newExchanger(creds, o, "read:user", "user:email"),
		apiURL:    o.apiURL,
	}
}

func (c *GitHubClient) Name() string { return GitHub }

func (c *GitHubClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*Profile, error) {
	client, err := c.exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, client, c.apiURL+"/user", &user); err != nil {
		return nil, err
	}

	// The public profile omits private addresses; fall back to the primary verified one.
	email := user.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, c.apiURL+"/user/emails", &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	var id string
	if user.ID != 0 {
		id = strconv.FormatInt(user.ID, 10)
	}

	return newProfile(GitHub, id, email, name)
}
