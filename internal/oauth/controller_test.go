package oauth_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/isometry/linear-agent-app/internal/controllers/linear"
	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/oauth"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = rw.Write([]byte(`{"access_token":"lin_oauth_token","token_type":"Bearer","expires_in":86400,"scope":"read,write,app:assignable"}`))
			return
		}
		_, _ = rw.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://agent.example.com/oauth/callback",
		Scopes:       []string{"read", "write"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://linear.app/oauth/authorize",
			TokenURL: tokenURL,
		},
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (*credentials.Credential, error) {
	return nil, credentials.ErrNotFound
}

func (failingStore) Put(context.Context, *credentials.Credential) error {
	return errors.New("read-only")
}

func TestController_Authorize(t *testing.T) {
	_inst := oauth.NewController(newConfig("https://api.linear.app/oauth/token"), credentials.NewMemoryStore())
	resp := _inst.Authorize(context.Background())
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Headers["Location"])
	require.NoError(t, err)
	assert.Equal(t, "linear.app", location.Host)
	q := location.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "app", q.Get("actor"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "code", q.Get("response_type"))
	require.NotEmpty(t, q.Get("state"))

	cookies, err := http.ParseSetCookie(resp.Headers["Set-Cookie"])
	require.NoError(t, err)
	assert.Equal(t, oauth.StateCookie, cookies.Name)
	assert.Equal(t, q.Get("state"), cookies.Value)
	assert.True(t, cookies.HttpOnly)
}

func TestController_AuthorizeWithoutClient(t *testing.T) {
	_inst := oauth.NewController(&oauth2.Config{}, credentials.NewMemoryStore())
	assert.Equal(t, http.StatusInternalServerError, _inst.Authorize(context.Background()).StatusCode)
}

func TestController_Callback(t *testing.T) {
	cookie := fmt.Sprintf("%s=state-1; other=x", oauth.StateCookie)
	lookup := func(context.Context, *http.Client) (*linear.Organization, error) {
		return &linear.Organization{ID: "org-1", Name: "Acme"}, nil
	}

	testCases := []struct {
		Name           string
		Query          url.Values
		Cookie         string
		TokenStatus    int
		Store          credentials.Store
		Lookup         oauth.OrganizationLookup
		ExpectedStatus int
		ExpectedBody   string
		ExpectStored   bool
	}{
		{
			Name:           "success",
			Query:          url.Values{"code": {"the-code"}, "state": {"state-1"}},
			Cookie:         cookie,
			TokenStatus:    http.StatusOK,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   "Authorization complete for organization Acme",
			ExpectStored:   true,
		},
		{
			Name:           "provider_error",
			Query:          url.Values{"error": {"access_denied"}},
			Cookie:         cookie,
			ExpectedStatus: http.StatusBadRequest,
			ExpectedBody:   "Authorization failed: access_denied",
		},
		{
			Name:           "state_mismatch",
			Query:          url.Values{"code": {"the-code"}, "state": {"state-2"}},
			Cookie:         cookie,
			ExpectedStatus: http.StatusBadRequest,
			ExpectedBody:   "Invalid OAuth state",
		},
		{
			Name:           "missing_cookie",
			Query:          url.Values{"code": {"the-code"}, "state": {"state-1"}},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedBody:   "Invalid OAuth state",
		},
		{
			Name:           "missing_code",
			Query:          url.Values{"state": {"state-1"}},
			Cookie:         cookie,
			ExpectedStatus: http.StatusBadRequest,
			ExpectedBody:   "Missing authorization code",
		},
		{
			Name:           "exchange_failure",
			Query:          url.Values{"code": {"the-code"}, "state": {"state-1"}},
			Cookie:         cookie,
			TokenStatus:    http.StatusBadRequest,
			ExpectedStatus: http.StatusInternalServerError,
			ExpectedBody:   "Token exchange failed",
		},
		{
			Name:        "lookup_failure",
			Query:       url.Values{"code": {"the-code"}, "state": {"state-1"}},
			Cookie:      cookie,
			TokenStatus: http.StatusOK,
			Lookup: func(context.Context, *http.Client) (*linear.Organization, error) {
				return nil, errors.New("unauthorized")
			},
			ExpectedStatus: http.StatusInternalServerError,
			ExpectedBody:   "Organization lookup failed",
		},
		{
			Name:           "store_failure",
			Query:          url.Values{"code": {"the-code"}, "state": {"state-1"}},
			Cookie:         cookie,
			TokenStatus:    http.StatusOK,
			Store:          failingStore{},
			ExpectedStatus: http.StatusInternalServerError,
			ExpectedBody:   "Failed to store credential",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			tokenStatus := tc.TokenStatus
			if tokenStatus == 0 {
				tokenStatus = http.StatusOK
			}
			server := newTokenServer(t, tokenStatus)
			store := tc.Store
			memory := credentials.NewMemoryStore()
			if store == nil {
				store = memory
			}
			l := tc.Lookup
			if l == nil {
				l = lookup
			}

			_inst := oauth.NewController(newConfig(server.URL), store, oauth.WithOrganizationLookup(l))
			resp := _inst.Callback(context.Background(), tc.Query, tc.Cookie)
			assert.Equal(t, tc.ExpectedStatus, resp.StatusCode)
			assert.Equal(t, tc.ExpectedBody, resp.Body)

			c, err := memory.Get(context.Background(), "org-1")
			if !tc.ExpectStored {
				assert.ErrorIs(t, err, credentials.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "lin_oauth_token", c.AccessToken)
			assert.Equal(t, "Acme", c.OrganizationName)
			assert.Equal(t, []string{"read", "write", "app:assignable"}, c.Scopes)
			assert.False(t, c.ExpiresAt.IsZero())
		})
	}
}
