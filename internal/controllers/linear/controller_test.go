package linear_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/isometry/linear-agent-app/internal/controllers/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newServer(t *testing.T, response string, requests *[]graphqlRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer lin_oauth_token", r.Header.Get("Authorization"))
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestController_Viewer(t *testing.T) {
	var requests []graphqlRequest
	server := newServer(t, `{"data":{"viewer":{"id":"user-1","organization":{"id":"org-1","name":"Acme","urlKey":"acme"}}}}`, &requests)

	_inst := linear.NewController(context.Background(), "lin_oauth_token", linear.WithAPIURL(server.URL))
	org, err := _inst.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &linear.Organization{ID: "org-1", Name: "Acme", URLKey: "acme"}, org)
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Query, "viewer")
	assert.Contains(t, requests[0].Query, "urlKey")
}

func TestController_ViewerWithoutOrganization(t *testing.T) {
	var requests []graphqlRequest
	server := newServer(t, `{"data":{"viewer":{"id":"user-1","organization":{"id":null,"name":"","urlKey":""}}}}`, &requests)

	_inst := linear.NewController(context.Background(), "lin_oauth_token", linear.WithAPIURL(server.URL))
	_, err := _inst.Viewer(context.Background())
	assert.Error(t, err)
}

func TestController_CreateActivity(t *testing.T) {
	testCases := []struct {
		Name        string
		Response    string
		ExpectedID  string
		ExpectError bool
	}{
		{
			Name:       "created",
			Response:   `{"data":{"agentActivityCreate":{"success":true,"agentActivity":{"id":"activity-1"}}}}`,
			ExpectedID: "activity-1",
		},
		{
			Name:        "not_successful",
			Response:    `{"data":{"agentActivityCreate":{"success":false,"agentActivity":{"id":null}}}}`,
			ExpectError: true,
		},
		{
			Name:        "graphql_error",
			Response:    `{"errors":[{"message":"Entity not found"}]}`,
			ExpectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			var requests []graphqlRequest
			server := newServer(t, tc.Response, &requests)
			_inst := linear.NewController(context.Background(), "lin_oauth_token", linear.WithAPIURL(server.URL))

			id, err := _inst.CreateActivity(context.Background(), "session-1", linear.ActivityContent{Type: linear.ActivityThought, Body: "Looking into it"})
			if tc.ExpectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.ExpectedID, id)

			require.Len(t, requests, 1)
			assert.Contains(t, requests[0].Query, "agentActivityCreate(input: $input)")
			assert.Contains(t, requests[0].Query, "$input:AgentActivityCreateInput!")
			assert.Equal(t, map[string]any{
				"agentSessionId": "session-1",
				"content":        map[string]any{"type": "thought", "body": "Looking into it"},
			}, requests[0].Variables["input"])
		})
	}
}
