package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/migrate"
	"github.com/Activ8-AI/maosec/tests/fakes"
	"github.com/Activ8-AI/maosec/tests/testutil"
)

func newMigrator(t *testing.T, st *fakes.FakeStore) *migrate.Migrator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return migrate.New(logger, st, testutil.LoadSampleRoster(t), "maos")
}

func TestPlanResolvesFlatNames(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET", "tok")
	st.Seed("PROD_LEVERAGE_HUBSPOT_API_KEY", "key")
	st.Seed("PROD_UNKNOWN_THING_X", "z")
	st.Seed("maos/prod/activ8ai/slack/bot_token", "already")

	m := newMigrator(t, st)
	plan, err := m.Plan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Hierarchical)
	assert.Equal(t, 2, plan.Count(migrate.ActionCopy))
	assert.Equal(t, 1, plan.Count(migrate.ActionUnparseable))

	byLegacy := map[string]migrate.Item{}
	for _, item := range plan.Items {
		byLegacy[item.LegacyID] = item
	}
	assert.Equal(t, "maos/prod/activ8ai/codex_portal/jwt_secret",
		byLegacy["PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET"].TargetID)
	assert.Equal(t, "maos/prod/leverage/hubspot/api_key",
		byLegacy["PROD_LEVERAGE_HUBSPOT_API_KEY"].TargetID)
}

func TestPlanDetectsAlreadyMigrated(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("PROD_ACTIV8AI_SLACK_BOT_TOKEN", "tok")
	st.Seed("maos/prod/activ8ai/slack/bot_token", "tok")

	m := newMigrator(t, st)
	plan, err := m.Plan(context.Background())
	require.NoError(t, err)

	require.Len(t, plan.Items, 1)
	assert.Equal(t, migrate.ActionMigrated, plan.Items[0].Action)
}

func TestApplyCopiesValues(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET", "tok")

	m := newMigrator(t, st)
	plan, err := m.Plan(context.Background())
	require.NoError(t, err)

	result, err := m.Apply(context.Background(), plan, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 0, result.Pruned)

	value, err := st.Get(context.Background(), "maos/prod/activ8ai/codex_portal/jwt_secret", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), value.Data)

	// The legacy name survives without prune.
	_, err = st.Get(context.Background(), "PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET", "")
	assert.NoError(t, err)

	labels := st.LabelSets["maos/prod/activ8ai/codex_portal/jwt_secret"]
	assert.Equal(t, "prod_activ8ai_codex_portal_jwt_secret", labels["migrated_from"])
}

func TestApplyWithPruneDeletesVerifiedCopies(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET", "tok")

	m := newMigrator(t, st)
	plan, err := m.Plan(context.Background())
	require.NoError(t, err)

	result, err := m.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 1, result.Pruned)
	assert.Equal(t, []string{"PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET"}, st.DeleteCalls)
}

func TestPruneRefusesOnValueMismatch(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("PROD_ACTIV8AI_SLACK_BOT_TOKEN", "legacy-value")
	st.Seed("maos/prod/activ8ai/slack/bot_token", "different-value")

	m := newMigrator(t, st)
	plan, err := m.Plan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, plan.Count(migrate.ActionMigrated))

	result, err := m.Apply(context.Background(), plan, true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Pruned)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Err.Error(), "refusing to prune")
	assert.Empty(t, st.DeleteCalls)
}

func TestApplyIsRerunnable(t *testing.T) {
	st := fakes.NewFakeStore("primary")
	st.Seed("PROD_ACTIV8AI_SLACK_BOT_TOKEN", "tok")

	m := newMigrator(t, st)

	plan, err := m.Plan(context.Background())
	require.NoError(t, err)
	_, err = m.Apply(context.Background(), plan, false)
	require.NoError(t, err)

	// Second pass sees the target and rewrites nothing.
	plan, err = m.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Count(migrate.ActionMigrated))

	result, err := m.Apply(context.Background(), plan, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Copied)
	assert.Equal(t, 1, st.VersionCounts["maos/prod/activ8ai/slack/bot_token"])
}
