package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/Xerneax8/Marcos-Osma-Ciber-TFG/pkg/logger"
)

// CommandRunner is an interface for executing commands and getting the output/error.
// dir is the working directory of the command; empty means the current one.
type CommandRunner interface {
	RunCommand(ctx context.Context, dir string, args ...string) (string, error)
	RunCommandStderr(ctx context.Context, dir string, args ...string) (string, error)
}

type DefaultCommandRunner struct{}

var _ CommandRunner = &DefaultCommandRunner{}

func (d *DefaultCommandRunner) RunCommand(ctx context.Context, dir string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("no command given")
	}
	logger.Debugf("Running command: %s (dir %q)", args, dir)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	logger.Debugf("Command output: %s", string(out))
	return string(out), err
}

// RunCommandStderr runs a command and returns only the stderr output
func (d *DefaultCommandRunner) RunCommandStderr(ctx context.Context, dir string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("no command given")
	}
	logger.Debugf("Running command (stderr only): %v (dir %q)", args, dir)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	cmd.Stdout = io.Discard

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command: %w", err)
	}

	stderrBytes, err := io.ReadAll(stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read stderr: %w", err)
	}

	cmdErr := cmd.Wait()

	stderrOutput := string(stderrBytes)
	logger.Debugf("Command stderr output: %s", stderrOutput)

	return stderrOutput, cmdErr
}

// ExitCode extracts the process exit code from a command error, or -1.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// FakeResponse is a canned result for one command line.
type FakeResponse struct {
	Output string
	ErrStr string
}

// FakeCommandRunner records every call and answers from Responses (keyed by
// the space-joined command line) or, failing that, from Output/ErrStr.
type FakeCommandRunner struct {
	Output    string
	ErrStr    string
	Responses map[string]FakeResponse

	mu    sync.Mutex
	Calls []FakeCall
}

// FakeCall is one recorded invocation.
type FakeCall struct {
	Dir  string
	Args []string
}

var _ CommandRunner = &FakeCommandRunner{}

func (f *FakeCommandRunner) RunCommand(ctx context.Context, dir string, args ...string) (string, error) {
	resp := f.record(dir, args)
	if resp.ErrStr != "" {
		return resp.Output, errors.New(resp.ErrStr)
	}
	return resp.Output, nil
}

func (f *FakeCommandRunner) RunCommandStderr(ctx context.Context, dir string, args ...string) (string, error) {
	resp := f.record(dir, args)
	if resp.ErrStr != "" {
		return resp.ErrStr, errors.New(resp.ErrStr)
	}
	return "", nil
}

// CallCount returns how many recorded calls start with the given command line prefix.
func (f *FakeCommandRunner) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(strings.Join(c.Args, " "), prefix) {
			n++
		}
	}
	return n
}

func (f *FakeCommandRunner) record(dir string, args []string) FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, FakeCall{Dir: dir, Args: append([]string(nil), args...)})
	if resp, ok := f.Responses[strings.Join(args, " ")]; ok {
		return resp
	}
	return FakeResponse{Output: f.Output, ErrStr: f.ErrStr}
}
