package syncer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/source"
	"github.com/Activ8-AI/maosec/internal/syncer"
	"github.com/Activ8-AI/maosec/tests/fakes"
	maostestutil "github.com/Activ8-AI/maosec/tests/testutil"
)

func record(name, value, tenant, system, env string) source.Record {
	return source.Record{Name: name, Value: value, Tenant: tenant, System: system, Env: env}
}

func TestPlanClassifiesRecords(t *testing.T) {
	logger, _ := maostestutil.NewTestLogger(t)
	r := maostestutil.LoadSampleRoster(t)
	st := fakes.NewFakeStore("primary")
	st.Seed("maos/prod/activ8ai/slack/bot_token", "unchanged")
	st.Seed("maos/prod/leverage/hubspot/api_key", "stale")

	src := fakes.NewFakeSource(
		record("BOT_TOKEN", "unchanged", "activ8ai", "slack", "prod"),
		record("API_KEY", "fresh", "leverage", "hubspot", "prod"),
		record("JWT_SECRET", "new", "activ8ai", "codex_portal", "prod"),
		record("ORPHAN", "x", "ghost_tenant", "slack", "prod"),
		source.Record{Name: "NO_VALUE", Tenant: "activ8ai", System: "slack", Env: "prod"},
	)

	s := syncer.New(logger, src, st, r, "maos")
	plan, err := s.Plan(context.Background(), syncer.Filter{})
	require.NoError(t, err)

	require.Len(t, plan.Items, 5)
	assert.Equal(t, 1, plan.Count(syncer.ActionSkip))
	assert.Equal(t, 1, plan.Count(syncer.ActionUpdate))
	assert.Equal(t, 1, plan.Count(syncer.ActionCreate))
	assert.Equal(t, 2, plan.Count(syncer.ActionInvalid))
	assert.True(t, plan.Changes())

	byID := map[string]syncer.Item{}
	for _, item := range plan.Items {
		byID[item.Record.Name] = item
	}
	assert.Equal(t, "maos/prod/activ8ai/codex_portal/jwt_secret", byID["JWT_SECRET"].ID)
	assert.Equal(t, "MAOS_PROD_ACTIV8AI_CODEX_PORTAL_JWT_SECRET", byID["JWT_SECRET"].EnvVar)
	assert.Contains(t, byID["ORPHAN"].Reason, "ghost_tenant")
	assert.Contains(t, byID["NO_VALUE"].Reason, "missing fields")
}

func TestPlanFilterDropsOtherTenants(t *testing.T) {
	logger, _ := maostestutil.NewTestLogger(t)
	r := maostestutil.LoadSampleRoster(t)
	st := fakes.NewFakeStore("primary")
	src := fakes.NewFakeSource(
		record("BOT_TOKEN", "a", "activ8ai", "slack", "prod"),
		record("API_KEY", "b", "leverage", "hubspot", "prod"),
		record("BOT_TOKEN", "c", "activ8ai", "slack", "staging"),
	)

	s := syncer.New(logger, src, st, r, "maos")
	plan, err := s.Plan(context.Background(), syncer.Filter{Tenant: "activ8ai", Env: "prod"})
	require.NoError(t, err)

	require.Len(t, plan.Items, 1)
	assert.Equal(t, "maos/prod/activ8ai/slack/bot_token", plan.Items[0].ID)
}

func TestApplyWritesAndLabels(t *testing.T) {
	logger, buf := maostestutil.NewTestLogger(t)
	r := maostestutil.LoadSampleRoster(t)
	st := fakes.NewFakeStore("primary")
	src := fakes.NewFakeSource(
		record("JWT_SECRET", "tok-123", "activ8ai", "codex_portal", "prod"),
	)

	s := syncer.New(logger, src, st, r, "maos")
	result, err := s.Run(context.Background(), syncer.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, []string{"maos/prod/activ8ai/codex_portal/jwt_secret"}, st.UpsertCalls)
	labels := st.LabelSets["maos/prod/activ8ai/codex_portal/jwt_secret"]
	assert.Equal(t, "maosec", labels["managed_by"])
	assert.Equal(t, "activ8ai", labels["tenant"])

	// The secret value itself must never be logged.
	maostestutil.AssertLogNotContains(t, buf, "tok-123")
	maostestutil.AssertLogContains(t, buf, "created maos/prod/activ8ai/codex_portal/jwt_secret")
}

func TestApplyCollectsErrorsAndContinues(t *testing.T) {
	logger, _ := maostestutil.NewTestLogger(t)
	r := maostestutil.LoadSampleRoster(t)
	st := fakes.NewFakeStore("primary")
	st.AddError("maos/prod/activ8ai/slack/bot_token", errors.New("quota exceeded"))
	src := fakes.NewFakeSource(
		record("BOT_TOKEN", "a", "activ8ai", "slack", "prod"),
		record("API_KEY", "b", "leverage", "hubspot", "prod"),
	)

	s := syncer.New(logger, src, st, r, "maos")
	result, err := s.Run(context.Background(), syncer.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "maos/prod/activ8ai/slack/bot_token", result.Errors[0].ID)
}

func TestRunIsIdempotent(t *testing.T) {
	logger, _ := maostestutil.NewTestLogger(t)
	r := maostestutil.LoadSampleRoster(t)
	st := fakes.NewFakeStore("primary")
	src := fakes.NewFakeSource(
		record("BOT_TOKEN", "a", "activ8ai", "slack", "prod"),
	)

	s := syncer.New(logger, src, st, r, "maos")

	first, err := s.Run(context.Background(), syncer.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := s.Run(context.Background(), syncer.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, st.VersionCounts["maos/prod/activ8ai/slack/bot_token"])
}

func TestMetricsObserveRun(t *testing.T) {
	logger, _ := maostestutil.NewTestLogger(t)
	r := maostestutil.LoadSampleRoster(t)
	st := fakes.NewFakeStore("primary")
	src := fakes.NewFakeSource(
		record("BOT_TOKEN", "a", "activ8ai", "slack", "prod"),
		source.Record{Name: "NO_VALUE", Tenant: "activ8ai", System: "slack", Env: "prod"},
	)

	reg := prometheus.NewRegistry()
	metrics := syncer.NewMetrics(reg)
	s := syncer.New(logger, src, st, r, "maos", syncer.WithMetrics(metrics))

	_, err := s.Run(context.Background(), syncer.Filter{})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["maosec_sync_runs_total"])
	assert.True(t, names["maosec_sync_secrets_total"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.InvalidGauge()))
}
