package main

import (
	"bytes"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "create-account"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
}

func TestRootCommand_VersionFlag(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "test-version"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "test-version")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestMigrate_RejectsUnknownDirection(t *testing.T) {
	_, err := execute(t, "migrate", "sideways")
	requireCode(t, err, "INVALID_DIRECTION")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := execute(t, "migrate", "up")
	requireCode(t, err, "CONFIG_INVALID")
}

func TestMigrate_TooManyArgs(t *testing.T) {
	_, err := execute(t, "migrate", "up", "down")
	require.Error(t, err)
}

func TestCreateAccount_RequiresFlags(t *testing.T) {
	_, err := execute(t, "create-account", "--email", "root@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestCreateAccount_RefusesMemoryStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	_, err := execute(t, "create-account", "--email", "root@example.com", "--password", "Secr3tPass!")
	requireCode(t, err, "CONFIG_INVALID")
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := execute(t, "serve")
	requireCode(t, err, "CONFIG_INVALID")
}
