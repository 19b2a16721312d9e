package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/store"
	"github.com/Activ8-AI/maosec/tests/fakes"
)

func newSecretsManagerStore(t *testing.T, client *fakes.FakeSecretsManagerClient) *store.AWSSecretsManagerStore {
	t.Helper()
	s, err := store.NewAWSSecretsManagerStore("dr", map[string]interface{}{
		"region": "eu-west-1",
	}, store.WithSecretsManagerClient(client))
	require.NoError(t, err)
	return s
}

func TestSecretsManagerUpsertCreatesThenUpdates(t *testing.T) {
	client := fakes.NewFakeSecretsManagerClient()
	s := newSecretsManagerStore(t, client)
	ctx := context.Background()

	version, err := s.Upsert(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret",
		[]byte("first"), map[string]string{"managed_by": "maosec"})
	require.NoError(t, err)
	assert.Equal(t, "v1", version)

	version, err = s.Upsert(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret", []byte("second"), nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", version)

	value, err := s.Get(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value.Data)
	assert.Equal(t, "v2", value.Version)
}

func TestSecretsManagerGetNotFound(t *testing.T) {
	s := newSecretsManagerStore(t, fakes.NewFakeSecretsManagerClient())

	_, err := s.Get(context.Background(), "maos/prod/activ8ai/codex_portal/missing", "")
	var notFound store.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestSecretsManagerDescribeTags(t *testing.T) {
	client := fakes.NewFakeSecretsManagerClient()
	s := newSecretsManagerStore(t, client)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "maos/prod/leverage/hubspot/api_key",
		[]byte("k"), map[string]string{"tenant": "leverage"})
	require.NoError(t, err)

	info, err := s.Describe(ctx, "maos/prod/leverage/hubspot/api_key")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, "leverage", info.Labels["tenant"])
}

func TestSecretsManagerListPaginates(t *testing.T) {
	client := fakes.NewFakeSecretsManagerClient()
	client.PageSize = 2
	for i := 0; i < 5; i++ {
		client.AddSecret(fmt.Sprintf("maos/prod/activ8ai/slack/token_%d", i), "v")
	}
	client.AddSecret("other/thing", "v")
	s := newSecretsManagerStore(t, client)

	ids, err := s.List(context.Background(), "maos/prod/")
	require.NoError(t, err)
	assert.Len(t, ids, 5)
	for _, id := range ids {
		assert.Contains(t, id, "maos/prod/")
	}
}

func TestSecretsManagerAuthError(t *testing.T) {
	client := fakes.NewFakeSecretsManagerClient()
	client.AddError("list", errors.New("operation error SecretsManager: ListSecrets, AccessDeniedException"))
	s := newSecretsManagerStore(t, client)

	err := s.Validate(context.Background())
	var authErr store.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func newSSMStore(t *testing.T, client *fakes.FakeSSMClient) *store.AWSSSMStore {
	t.Helper()
	s, err := store.NewAWSSSMStore("params", map[string]interface{}{
		"region": "eu-west-1",
	}, store.WithSSMClient(client))
	require.NoError(t, err)
	return s
}

func TestSSMUpsertAndGet(t *testing.T) {
	client := fakes.NewFakeSSMClient()
	s := newSSMStore(t, client)
	ctx := context.Background()

	version, err := s.Upsert(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret", []byte("tok"), nil)
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	value, err := s.Get(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), value.Data)
	assert.Equal(t, "1", value.Version)
}

func TestSSMGetVersionSelector(t *testing.T) {
	client := fakes.NewFakeSSMClient()
	s := newSSMStore(t, client)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "maos/prod/activ8ai/slack/bot_token", []byte("v1"), nil)
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "maos/prod/activ8ai/slack/bot_token", []byte("v2"), nil)
	require.NoError(t, err)

	value, err := s.Get(ctx, "maos/prod/activ8ai/slack/bot_token", "2")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value.Data)

	_, err = s.Get(ctx, "maos/prod/activ8ai/slack/bot_token", "9")
	var notFound store.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestSSMListByPath(t *testing.T) {
	client := fakes.NewFakeSSMClient()
	client.AddParameter("/maos/prod/activ8ai/slack/bot_token", "a")
	client.AddParameter("/maos/prod/leverage/hubspot/api_key", "b")
	client.AddParameter("/maos/staging/activ8ai/slack/bot_token", "c")
	client.AddParameter("/unrelated/param", "d")
	s := newSSMStore(t, client)

	ids, err := s.List(context.Background(), "maos/prod/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"maos/prod/activ8ai/slack/bot_token",
		"maos/prod/leverage/hubspot/api_key",
	}, ids)
}

func TestSSMDescribeAndDelete(t *testing.T) {
	client := fakes.NewFakeSSMClient()
	client.AddParameter("/maos/prod/activ8ai/slack/bot_token", "a")
	s := newSSMStore(t, client)
	ctx := context.Background()

	info, err := s.Describe(ctx, "maos/prod/activ8ai/slack/bot_token")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, "1", info.Version)

	require.NoError(t, s.Delete(ctx, "maos/prod/activ8ai/slack/bot_token"))

	info, err = s.Describe(ctx, "maos/prod/activ8ai/slack/bot_token")
	require.NoError(t, err)
	assert.False(t, info.Exists)
}
