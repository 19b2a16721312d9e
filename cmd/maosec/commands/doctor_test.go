package commands

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Activ8-AI/maosec/tests/testutil"
)

func TestDoctorCommand_Healthy(t *testing.T) {
	registerFakeStore(t)
	cfg := testConfig(t)

	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
}

func TestDoctorCommand_CountsFailures(t *testing.T) {
	fake := registerFakeStore(t)
	fake.AddError("validate", errors.New("credentials expired"))
	cfg := testConfig(t)

	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 checks failed")
}

func TestDoctorCommand_MissingRoster(t *testing.T) {
	registerFakeStore(t)
	cfg := testutil.NewConfig(t).
		WithStore("primary", "fake", nil).
		WithDefaultStore("primary").
		Write()

	cmd := NewDoctorCommand(cfg)
	cmd.SetArgs([]string{})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()

	require.Error(t, err)
}
