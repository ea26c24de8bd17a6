package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newProviderServer(t *testing.T, routes map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-access","token_type":"bearer","expires_in":3600}`))
	})
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer provider-access" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			require.NoError(t, json.NewEncoder(w).Encode(body))
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testEndpoint(srv *httptest.Server) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   srv.URL + "/authorize",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

var testCreds = Credentials{ClientID: "client", ClientSecret: "secret"}

func TestGitHubClientFallsBackToPrimaryEmail(t *testing.T) {
	srv := newProviderServer(t, map[string]any{
		"/user": map[string]any{"id": 42, "login": "octo", "name": ""},
		"/user/emails": []map[string]any{
			{"email": "secondary@x.com", "primary": false, "verified": true},
			{"email": "octo@x.com", "primary": true, "verified": true},
		},
	})

	c := NewGitHubClient(testCreds, WithEndpoint(testEndpoint(srv)), WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	profile, err := c.ExchangeCode(context.Background(), "good-code", "https://app/callback")
	require.NoError(t, err)
	require.Equal(t, &Profile{
		ProviderName:   GitHub,
		ProviderUserID: "42",
		Email:          "octo@x.com",
		DisplayName:    "octo",
	}, profile)
}

func TestGitHubClientRejectsBadCode(t *testing.T) {
	srv := newProviderServer(t, nil)

	c := NewGitHubClient(testCreds, WithEndpoint(testEndpoint(srv)), WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.ExchangeCode(context.Background(), "bad-code", "https://app/callback")
	require.ErrorIs(t, err, ErrExchangeFailed)

	_, err = c.ExchangeCode(context.Background(), " ", "https://app/callback")
	require.ErrorIs(t, err, ErrExchangeFailed)
}

func TestFacebookClientRequiresUserID(t *testing.T) {
	srv := newProviderServer(t, map[string]any{
		"/me": map[string]any{"name": "No Id"},
	})

	c := NewFacebookClient(testCreds, WithEndpoint(testEndpoint(srv)), WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := c.ExchangeCode(context.Background(), "good-code", "https://app/callback")
	require.ErrorIs(t, err, ErrMissingProfile)
}

func TestLiveClientUsesPrincipalNameWhenMailMissing(t *testing.T) {
	srv := newProviderServer(t, map[string]any{
		"/me": map[string]any{"id": "ms-1", "displayName": "Mia", "userPrincipalName": "mia@outlook.com"},
	})

	c := NewLiveClient(testCreds, WithEndpoint(testEndpoint(srv)), WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	profile, err := c.ExchangeCode(context.Background(), "good-code", "https://app/callback")
	require.NoError(t, err)
	require.Equal(t, "ms-1", profile.ProviderUserID)
	require.Equal(t, "mia@outlook.com", profile.Email)
	require.Equal(t, Live, profile.ProviderName)
}

func TestGoogleClientReadsUserinfo(t *testing.T) {
	srv := newProviderServer(t, map[string]any{
		"/oauth2/v2/userinfo": map[string]any{"id": "g-7", "email": "gina@gmail.com", "name": "Gina"},
	})

	c := NewGoogleClient(testCreds, WithEndpoint(testEndpoint(srv)), WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
	profile, err := c.ExchangeCode(context.Background(), "good-code", "https://app/callback")
	require.NoError(t, err)
	require.Equal(t, "g-7", profile.ProviderUserID)
	require.Equal(t, "gina@gmail.com", profile.Email)
	require.Equal(t, "Gina", profile.DisplayName)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(NewGitHubClient(testCreds), NewFacebookClient(testCreds))

	c, err := r.Get("GitHub")
	require.NoError(t, err)
	require.Equal(t, GitHub, c.Name())

	_, err = r.Get("myspace")
	require.ErrorIs(t, err, ErrProviderNotFound)

	require.Equal(t, []string{Facebook, GitHub}, r.Names())
}
