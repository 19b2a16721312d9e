package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/loader"
	"github.com/Activ8-AI/maosec/tests/fakes"
	"github.com/Activ8-AI/maosec/tests/testutil"
)

func newLoader(t *testing.T, st *fakes.FakeStore) *loader.Loader {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return loader.New(logger, st, testutil.LoadSampleRoster(t), "maos")
}

func TestForHostLoadsSurfaceSystems(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("maos/prod/activ8ai/codex_portal/jwt_secret", "tok")
	st.Seed("maos/prod/activ8ai/codex_portal/db_password", "pw")
	// slack is not part of the portal surface, so it must not load.
	st.Seed("maos/prod/activ8ai/slack/bot_token", "bot")

	l := newLoader(t, st)
	vars, err := l.ForHost(context.Background(), "activ8ai.app", "prod")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"MAOS_PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET":  "tok",
		"MAOS_PROD_ACTIV8AI_CODEX_PORTAL_DB_PASSWORD": "pw",
	}, vars)
}

func TestForHostFallbackResolution(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("maos/prod/leverage/hubspot/api_key", "key")
	st.Seed("maos/prod/leverage/clients_portal/session_secret", "sess")

	l := newLoader(t, st)
	// admin.leverage.io is not a declared surface host; the sub.domain.tld
	// fallback resolves tenant=leverage, and an undeclared surface loads
	// every tenant system.
	vars, err := l.ForHost(context.Background(), "admin.leverage.io", "prod")
	require.NoError(t, err)

	assert.Len(t, vars, 2)
	assert.Equal(t, "key", vars["MAOS_PROD_LEVERAGE_HUBSPOT_API_KEY"])
}

func TestForHostUnknownHost(t *testing.T) {
	l := newLoader(t, fakes.NewFakeStore("primary"))

	_, err := l.ForHost(context.Background(), "nobody.example.com", "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody.example.com")
}

func TestForHostCachesUntilInvalidate(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("maos/prod/activ8ai/codex_portal/jwt_secret", "v1")

	l := newLoader(t, st)
	ctx := context.Background()

	vars, err := l.ForHost(ctx, "activ8ai.app", "prod")
	require.NoError(t, err)
	assert.Equal(t, "v1", vars["MAOS_PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET"])

	st.Seed("maos/prod/activ8ai/codex_portal/jwt_secret", "v2")

	vars, err = l.ForHost(ctx, "activ8ai.app", "prod")
	require.NoError(t, err)
	assert.Equal(t, "v1", vars["MAOS_PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET"])

	l.Invalidate()
	vars, err = l.ForHost(ctx, "activ8ai.app", "prod")
	require.NoError(t, err)
	assert.Equal(t, "v2", vars["MAOS_PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET"])
}

func TestForHostCacheIsPerEnv(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("maos/prod/activ8ai/codex_portal/jwt_secret", "prod-tok")
	st.Seed("maos/staging/activ8ai/codex_portal/jwt_secret", "staging-tok")

	l := newLoader(t, st)
	ctx := context.Background()

	prodVars, err := l.ForHost(ctx, "activ8ai.app", "prod")
	require.NoError(t, err)
	stagingVars, err := l.ForHost(ctx, "activ8ai.app", "staging")
	require.NoError(t, err)

	assert.Equal(t, "prod-tok", prodVars["MAOS_PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET"])
	assert.Equal(t, "staging-tok", stagingVars["MAOS_STAGING_ACTIV8AI_CODEX_PORTAL_JWT_SECRET"])
}

func TestForSystemIsUncached(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("maos/prod/leverage/hubspot/api_key", "v1")

	l := newLoader(t, st)
	ctx := context.Background()

	vars, err := l.ForSystem(ctx, "leverage", "hubspot", "prod")
	require.NoError(t, err)
	assert.Equal(t, "v1", vars["MAOS_PROD_LEVERAGE_HUBSPOT_API_KEY"])

	st.Seed("maos/prod/leverage/hubspot/api_key", "v2")
	vars, err = l.ForSystem(ctx, "leverage", "hubspot", "prod")
	require.NoError(t, err)
	assert.Equal(t, "v2", vars["MAOS_PROD_LEVERAGE_HUBSPOT_API_KEY"])
}
