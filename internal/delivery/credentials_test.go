package delivery

import (
	"context"
	"testing"

	"github.com/smallbiznis/tiffinbill/internal/config"
	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore map[string]string

func (s stubStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", settingsdomain.ErrPropertyNotFound
	}
	return v, nil
}

func (s stubStore) Set(_ context.Context, key, value string) error {
	s[key] = value
	return nil
}

func (s stubStore) Delete(_ context.Context, key string) error {
	delete(s, key)
	return nil
}

func TestResolvePrefersStoredCredentials(t *testing.T) {
	store := stubStore{
		PropertyAccountSID: "AC-stored",
		PropertyAuthToken:  "token-stored",
		PropertyFromNumber: "+15550002222",
	}
	resolver := NewResolver(ResolverParams{Store: store, Config: config.Config{
		TwilioAccountSID: "AC-env",
		TwilioAuthToken:  "token-env",
		TwilioFromNumber: "+15550009999",
	}})

	creds, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AC-stored", creds.AccountSID)
	assert.Equal(t, "+15550002222", creds.FromNumber)
}

func TestResolveFallsBackToEnv(t *testing.T) {
	resolver := NewResolver(ResolverParams{Store: stubStore{}, Config: config.Config{
		TwilioAccountSID: "AC-env",
		TwilioAuthToken:  "token-env",
		TwilioFromNumber: "+15550009999",
	}})

	creds, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AC-env", creds.AccountSID)
}

func TestResolveMissingAnyPartFails(t *testing.T) {
	resolver := NewResolver(ResolverParams{Store: stubStore{
		PropertyAccountSID: "AC-stored",
	}, Config: config.Config{}})

	_, err := resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
