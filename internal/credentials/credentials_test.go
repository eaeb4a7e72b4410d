package credentials_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/isometry/linear-agent-app/internal/controllers/aws"
	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	err error
}

func (f *failingStore) Get(context.Context, string) (*credentials.Credential, error) {
	return nil, f.err
}

func (f *failingStore) Put(context.Context, *credentials.Credential) error {
	return f.err
}

type fakeParameters struct {
	values map[string]string
}

func (f *fakeParameters) GetSecret(_ context.Context, key string, _ bool) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errors.Wrap(aws.ErrParameterNotFound, key)
	}
	return v, nil
}

func (f *fakeParameters) PutSecret(_ context.Context, key string, value string) error {
	f.values[key] = value
	return nil
}

func TestResolver_Resolve(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := credentials.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &credentials.Credential{OrganizationID: "org-valid", AccessToken: "token"}))
	require.NoError(t, store.Put(ctx, &credentials.Credential{OrganizationID: "org-future", AccessToken: "token", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Put(ctx, &credentials.Credential{OrganizationID: "org-expired", AccessToken: "token", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, store.Put(ctx, &credentials.Credential{OrganizationID: "org-revoked"}))

	testCases := []struct {
		Name           string
		Store          credentials.Store
		OrganizationID string
		ExpectNotFound bool
		ExpectError    bool
	}{
		{Name: "valid", Store: store, OrganizationID: "org-valid"},
		{Name: "not_yet_expired", Store: store, OrganizationID: "org-future"},
		{Name: "missing", Store: store, OrganizationID: "org-missing", ExpectNotFound: true},
		{Name: "expired", Store: store, OrganizationID: "org-expired", ExpectNotFound: true},
		{Name: "revoked", Store: store, OrganizationID: "org-revoked", ExpectNotFound: true},
		{Name: "empty_organization", Store: store, ExpectNotFound: true},
		{Name: "store_failure", Store: &failingStore{err: errors.New("connection refused")}, OrganizationID: "org-valid", ExpectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			_inst := credentials.NewResolver(tc.Store, credentials.WithClock(func() time.Time { return now }))
			c, err := _inst.Resolve(ctx, tc.OrganizationID)
			switch {
			case tc.ExpectNotFound:
				var notFound *credentials.NotFoundError
				require.ErrorAs(t, err, &notFound)
				assert.ErrorIs(t, err, credentials.ErrNotFound)
				assert.Equal(t, tc.OrganizationID, notFound.OrganizationID)
				assert.Nil(t, c)
			case tc.ExpectError:
				require.Error(t, err)
				assert.NotErrorIs(t, err, credentials.ErrNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.OrganizationID, c.OrganizationID)
				assert.Equal(t, "token", c.AccessToken)
			}
		})
	}
}

func TestCredential_LogValue(t *testing.T) {
	c := &credentials.Credential{OrganizationID: "org-1", AccessToken: "super-secret"}
	assert.NotContains(t, fmt.Sprint(c.LogValue()), "super-secret")
}

func TestNotFoundError(t *testing.T) {
	assert.Equal(t, "no access token found for organization org-1", (&credentials.NotFoundError{OrganizationID: "org-1"}).Error())
	assert.Equal(t, "no access token found for organization org-1 (expired)", (&credentials.NotFoundError{OrganizationID: "org-1", Reason: "expired"}).Error())
}

func testStore(t *testing.T, store credentials.Store) {
	t.Helper()
	ctx := context.Background()
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, "org-1")
	assert.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, store.Put(ctx, &credentials.Credential{
		OrganizationID:   "org-1",
		OrganizationName: "Acme",
		AccessToken:      "first",
		TokenType:        "Bearer",
		Scopes:           []string{"read", "write"},
		ExpiresAt:        expires,
	}))
	require.NoError(t, store.Put(ctx, &credentials.Credential{
		OrganizationID: "org-1",
		AccessToken:    "second",
		TokenType:      "Bearer",
		Scopes:         []string{"read"},
	}))

	c, err := store.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", c.OrganizationID)
	assert.Equal(t, "second", c.AccessToken)
	assert.Equal(t, []string{"read"}, c.Scopes)
	assert.True(t, c.ExpiresAt.IsZero())

	assert.Error(t, store.Put(ctx, &credentials.Credential{AccessToken: "orphan"}))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, credentials.NewMemoryStore())
}

func TestSSMStore(t *testing.T) {
	parameters := &fakeParameters{values: map[string]string{}}
	testStore(t, credentials.NewSSMStore(parameters, "/linear-agent-app/tokens"))
	assert.Contains(t, parameters.values, "/linear-agent-app/tokens/org-1")
}

func TestSQLStore(t *testing.T) {
	store, err := credentials.OpenSQLStore(context.Background(), "sqlite3", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	testStore(t, store)
}

func TestOpenSQLStoreUnsupportedDriver(t *testing.T) {
	_, err := credentials.OpenSQLStore(context.Background(), "mysql", "")
	assert.Error(t, err)
}
