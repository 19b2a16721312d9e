package commands

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/tests/testutil"
)

func configWithCheck(t *testing.T, check config.CheckConfig) *config.Config {
	t.Helper()
	return testutil.NewConfig(t).
		WithRoster(testutil.SampleRosterYAML).
		WithStore("primary", "fake", nil).
		WithDefaultStore("primary").
		WithChecks(check).
		Write()
}

func TestVerifyCommand_NoChecksIsNoop(t *testing.T) {
	registerFakeStore(t)
	cfg := testConfig(t)

	cmd := NewVerifyCommand(cfg)
	cmd.SetArgs([]string{"--env", "prod"})
	require.NoError(t, cmd.Execute())
}

func TestVerifyCommand_HTTPCheck(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fake := registerFakeStore(t)
	fake.Seed("maos/prod/activ8ai/codex_portal/service_token", "tok-123")
	cfg := configWithCheck(t, config.CheckConfig{
		Name:     "portal-api",
		Type:     "http",
		Endpoint: server.URL,
		TokenVar: "MAOS_PROD_ACTIV8AI_CODEX_PORTAL_SERVICE_TOKEN",
		Host:     "activ8ai.app",
	})

	cmd := NewVerifyCommand(cfg)
	cmd.SetArgs([]string{"--env", "prod"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestVerifyCommand_FailingCheckExitsNonZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	fake := registerFakeStore(t)
	fake.Seed("maos/prod/activ8ai/codex_portal/service_token", "tok-123")
	cfg := configWithCheck(t, config.CheckConfig{
		Name:     "portal-api",
		Type:     "http",
		Endpoint: server.URL,
		TokenVar: "MAOS_PROD_ACTIV8AI_CODEX_PORTAL_SERVICE_TOKEN",
		Host:     "activ8ai.app",
	})

	cmd := NewVerifyCommand(cfg)
	cmd.SetArgs([]string{"--env", "prod"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 checks failed")
}
