package deploy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/runner"
)

func TestDeploy_UsesScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultScript), []byte("#!/bin/sh\n"), 0755))

	fake := &runner.FakeCommandRunner{}
	d := NewScriptDeployer(fake, "")

	require.NoError(t, d.Deploy(context.Background(), dir))
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, dir, fake.Calls[0].Dir)
	assert.Equal(t, []string{"sh", DefaultScript}, fake.Calls[0].Args)
}

func TestDeploy_FallsBackToCompose(t *testing.T) {
	dir := t.TempDir()
	fake := &runner.FakeCommandRunner{}
	d := NewScriptDeployer(fake, "")

	require.NoError(t, d.Deploy(context.Background(), dir))
	assert.Equal(t, 1, fake.CallCount("docker compose up -d --build"))
}

func TestDeploy_CustomScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"), 0755))

	fake := &runner.FakeCommandRunner{}
	require.NoError(t, NewScriptDeployer(fake, "run.sh").Deploy(context.Background(), dir))
	assert.Equal(t, 1, fake.CallCount("sh run.sh"))
}

func TestDeploy_Failure(t *testing.T) {
	dir := t.TempDir()
	fake := &runner.FakeCommandRunner{ErrStr: "port is already allocated"}
	d := NewScriptDeployer(fake, "")

	err := d.Deploy(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDeployFailed))
	assert.Contains(t, err.Error(), "Deployment failed (exit code")
	assert.Contains(t, err.Error(), "port is already allocated")
}

func TestTeardown(t *testing.T) {
	dir := t.TempDir()
	fake := &runner.FakeCommandRunner{}
	d := NewScriptDeployer(fake, "")

	require.NoError(t, d.Teardown(context.Background(), dir))
	require.Len(t, fake.Calls, 1)
	assert.Equal(t, []string{"docker", "compose", "down"}, fake.Calls[0].Args)
	assert.Equal(t, dir, fake.Calls[0].Dir)

	failing := &runner.FakeCommandRunner{ErrStr: "boom"}
	err := NewScriptDeployer(failing, "").Teardown(context.Background(), dir)
	assert.True(t, errors.HasCode(err, errors.CodeDeployFailed))
}
