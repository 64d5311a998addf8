package deploy

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/errors"
	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/common/runner"
)

// DefaultScript is the deploy script every challenge ships with.
const DefaultScript = "deploy-challenge.sh"

const domain = "deploy"

// Deployer brings a challenge directory up and down.
type Deployer interface {
	Deploy(ctx context.Context, dir string) error
	Teardown(ctx context.Context, dir string) error
}

// ScriptDeployer runs the challenge's deploy script, or `docker compose up`
// when the directory has none, and tears down with `docker compose down`.
type ScriptDeployer struct {
	runner runner.CommandRunner
	script string
}

var _ Deployer = &ScriptDeployer{}

func NewScriptDeployer(r runner.CommandRunner, script string) *ScriptDeployer {
	if script == "" {
		script = DefaultScript
	}
	return &ScriptDeployer{
		runner: r,
		script: script,
	}
}

func (d *ScriptDeployer) Deploy(ctx context.Context, dir string) error {
	args := d.deployCommand(dir)
	stderr, err := d.runner.RunCommandStderr(ctx, dir, args...)
	if err != nil {
		return errors.New(errors.CodeDeployFailed, domain,
			fmt.Sprintf("Deployment failed (exit code %d):\n%s", runner.ExitCode(err), strings.TrimSpace(stderr)), err)
	}
	return nil
}

func (d *ScriptDeployer) Teardown(ctx context.Context, dir string) error {
	out, err := d.runner.RunCommand(ctx, dir, "docker", "compose", "down")
	if err != nil {
		return errors.New(errors.CodeDeployFailed, domain,
			fmt.Sprintf("docker compose down failed: %s", strings.TrimSpace(out)), err)
	}
	return nil
}

func (d *ScriptDeployer) deployCommand(dir string) []string {
	if info, err := os.Stat(filepath.Join(dir, d.script)); err == nil && !info.IsDir() {
		return []string{"sh", d.script}
	}
	return []string{"docker", "compose", "up", "-d", "--build"}
}

// CheckDockerInstalled reports whether docker is on PATH.
func CheckDockerInstalled() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return errors.New(errors.CodeConfigurationInvalid, domain,
			"docker executable not found in PATH. Please install Docker or ensure it's available in your PATH", err)
	}
	return nil
}
