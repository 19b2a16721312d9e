package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCommand_WritesRecords(t *testing.T) {
	fake := registerFakeStore(t)
	cfg := testConfig(t, planRecords()...)

	cmd := NewSyncCommand(cfg)
	cmd.SetArgs([]string{})
	_, err := captureStdout(t, cmd.Execute)
	require.NoError(t, err)

	assert.Len(t, fake.UpsertCalls, 2)
	assert.Equal(t, []byte("tok-1"), fake.Values["maos/prod/activ8ai/codex_portal/jwt_secret"])
	assert.Equal(t, []byte("tok-2"), fake.Values["maos/prod/leverage/hubspot/api_key"])
	assert.Equal(t, "activ8ai", fake.LabelSets["maos/prod/activ8ai/codex_portal/jwt_secret"]["tenant"])
}

func TestSyncCommand_DryRunWritesNothing(t *testing.T) {
	fake := registerFakeStore(t)
	cfg := testConfig(t, planRecords()...)

	cmd := NewSyncCommand(cfg)
	cmd.SetArgs([]string{"--dry-run"})
	output, err := captureStdout(t, cmd.Execute)
	require.NoError(t, err)

	assert.Contains(t, output, "2 to create")
	assert.Empty(t, fake.UpsertCalls)
}

func TestSyncCommand_StoreLookupFailureDoesNotBlockOthers(t *testing.T) {
	fake := registerFakeStore(t)
	fake.AddError("maos/prod/leverage/hubspot/api_key", errors.New("quota exhausted"))
	cfg := testConfig(t, planRecords()...)

	cmd := NewSyncCommand(cfg)
	cmd.SetArgs([]string{})
	_, err := captureStdout(t, cmd.Execute)
	require.NoError(t, err)

	// The failing record is reported as invalid; the healthy one still lands.
	assert.Equal(t, []byte("tok-1"), fake.Values["maos/prod/activ8ai/codex_portal/jwt_secret"])
	assert.NotContains(t, fake.UpsertCalls, "maos/prod/leverage/hubspot/api_key")
}
