package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/store"
	"github.com/Activ8-AI/maosec/tests/fakes"
)

func newGCPStore(t *testing.T, client *fakes.FakeGCPClient) *store.GCPStore {
	t.Helper()
	s, err := store.NewGCPStore("primary", map[string]interface{}{
		"project_id": "test-project",
	}, store.WithGCPClient(client))
	require.NoError(t, err)
	return s
}

func TestGCPStoreRequiresProject(t *testing.T) {
	_, err := store.NewGCPStore("primary", map[string]interface{}{},
		store.WithGCPClient(fakes.NewFakeGCPClient()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project_id")
}

func TestGCPStoreUpsertThenGet(t *testing.T) {
	client := fakes.NewFakeGCPClient()
	s := newGCPStore(t, client)
	ctx := context.Background()

	version, err := s.Upsert(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret",
		[]byte("tok-123"), map[string]string{"managed_by": "maosec"})
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	value, err := s.Get(ctx, "maos/prod/activ8ai/codex_portal/jwt_secret", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("tok-123"), value.Data)
}

func TestGCPStoreUpsertExistingAddsVersion(t *testing.T) {
	client := fakes.NewFakeGCPClient()
	client.AddSecretString("test-project", "maos/prod/activ8ai/slack/bot_token", "old")
	s := newGCPStore(t, client)
	ctx := context.Background()

	version, err := s.Upsert(ctx, "maos/prod/activ8ai/slack/bot_token", []byte("new"), nil)
	require.NoError(t, err)
	assert.Equal(t, "2", version)

	value, err := s.Get(ctx, "maos/prod/activ8ai/slack/bot_token", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), value.Data)

	old, err := s.Get(ctx, "maos/prod/activ8ai/slack/bot_token", "1")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), old.Data)
}

func TestGCPStoreGetNotFound(t *testing.T) {
	s := newGCPStore(t, fakes.NewFakeGCPClient())

	_, err := s.Get(context.Background(), "maos/prod/activ8ai/codex_portal/missing", "")
	var notFound store.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "maos/prod/activ8ai/codex_portal/missing", notFound.ID)
}

func TestGCPStoreDescribe(t *testing.T) {
	client := fakes.NewFakeGCPClient()
	client.AddSecretString("test-project", "maos/prod/leverage/hubspot/api_key", "k")
	s := newGCPStore(t, client)

	info, err := s.Describe(context.Background(), "maos/prod/leverage/hubspot/api_key")
	require.NoError(t, err)
	assert.True(t, info.Exists)

	info, err = s.Describe(context.Background(), "maos/prod/leverage/hubspot/absent")
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestGCPStoreListFiltersByPrefix(t *testing.T) {
	client := fakes.NewFakeGCPClient()
	client.AddSecretString("test-project", "maos/prod/activ8ai/slack/bot_token", "a")
	client.AddSecretString("test-project", "maos/prod/leverage/hubspot/api_key", "b")
	client.AddSecretString("test-project", "maos/staging/activ8ai/slack/bot_token", "c")
	s := newGCPStore(t, client)

	ids, err := s.List(context.Background(), "maos/prod/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"maos/prod/activ8ai/slack/bot_token",
		"maos/prod/leverage/hubspot/api_key",
	}, ids)
}

func TestGCPStoreDelete(t *testing.T) {
	client := fakes.NewFakeGCPClient()
	client.AddSecretString("test-project", "maos/prod/activ8ai/slack/bot_token", "a")
	s := newGCPStore(t, client)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "maos/prod/activ8ai/slack/bot_token"))

	_, err := s.Get(ctx, "maos/prod/activ8ai/slack/bot_token", "")
	var notFound store.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGCPStorePermissionDenied(t *testing.T) {
	client := fakes.NewFakeGCPClient()
	client.AddError("projects/test-project/secrets/maos/prod/activ8ai/slack/bot_token/versions/latest",
		fakes.GCPPermissionDeniedError("caller lacks secretmanager.versions.access"))
	s := newGCPStore(t, client)

	_, err := s.Get(context.Background(), "maos/prod/activ8ai/slack/bot_token", "")
	var authErr store.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "primary", authErr.Store)
}
