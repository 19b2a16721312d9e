package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/store"
	"github.com/Activ8-AI/maosec/tests/fakes"
)

func newAzureStore(t *testing.T, client *fakes.FakeAzureClient) *store.AzureKeyVaultStore {
	t.Helper()
	s, err := store.NewAzureKeyVaultStore("vault", map[string]interface{}{
		"vault_url": "https://test-vault.vault.azure.net",
	}, store.WithAzureClient(client))
	require.NoError(t, err)
	return s
}

func TestAzureStoreRequiresVaultURL(t *testing.T) {
	_, err := store.NewAzureKeyVaultStore("vault", map[string]interface{}{},
		store.WithAzureClient(fakes.NewFakeAzureClient()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault_url")
}

func TestAzureStoreUpsertEncodesName(t *testing.T) {
	client := fakes.NewFakeAzureClient()
	s := newAzureStore(t, client)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret", []byte("tok"), nil)
	require.NoError(t, err)

	// Slashes and underscores are not legal in vault secret names.
	secret, ok := client.Secrets["maos-prod-activ8ai-codex-portal-jwt-secret"]
	require.True(t, ok)
	assert.Equal(t, "tok", secret.Value)
	require.NotNil(t, secret.Tags["maos_path"])
	assert.Equal(t, "maos/prod/activ8ai/codex_portal/jwt_secret", *secret.Tags["maos_path"])
}

func TestAzureStoreGetRoundTrip(t *testing.T) {
	client := fakes.NewFakeAzureClient()
	s := newAzureStore(t, client)
	ctx := context.Background()

	version, err := s.Upsert(ctx, "maos/prod/leverage/hubspot/api_key", []byte("k1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	value, err := s.Get(ctx, "maos/prod/leverage/hubspot/api_key", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("k1"), value.Data)
}

func TestAzureStoreGetNotFound(t *testing.T) {
	s := newAzureStore(t, fakes.NewFakeAzureClient())

	_, err := s.Get(context.Background(), "maos/prod/activ8ai/slack/missing", "")
	var notFound store.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestAzureStoreListReturnsCanonicalIDs(t *testing.T) {
	client := fakes.NewFakeAzureClient()
	s := newAzureStore(t, client)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "maos/prod/activ8ai/slack/bot_token", []byte("a"), nil)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "maos/staging/activ8ai/slack/bot_token", []byte("b"), nil)
	require.NoError(t, err)
	// A secret without the path tag is not managed here and must be skipped.
	client.AddSecret("unmanaged-secret", "x", nil)

	ids, err := s.List(ctx, "maos/prod/")
	require.NoError(t, err)
	assert.Equal(t, []string{"maos/prod/activ8ai/slack/bot_token"}, ids)
}

func TestAzureStoreDescribeMissing(t *testing.T) {
	s := newAzureStore(t, fakes.NewFakeAzureClient())

	info, err := s.Describe(context.Background(), "maos/prod/activ8ai/slack/bot_token")
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestAzureStoreForbidden(t *testing.T) {
	client := fakes.NewFakeAzureClient()
	client.AddError("maos-prod-activ8ai-slack-bot-token", fakes.AzureForbiddenError())
	s := newAzureStore(t, client)

	_, err := s.Get(context.Background(), "maos/prod/activ8ai/slack/bot_token", "")
	var authErr store.AuthError
	assert.ErrorAs(t, err, &authErr)
}
