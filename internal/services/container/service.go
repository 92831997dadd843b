// Package container wraps the container runtime CLI (docker or podman).
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Service defines the interface for container runtime operations.
type Service interface {
	Running(ctx context.Context, name string) (bool, error)
	ReadFile(ctx context.Context, name, path string) ([]byte, error)
	ExecToWriter(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
	ExecuteToWriter(ctx context.Context, w io.Writer, name string, args ...string) error
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its stdout. Stderr is folded into the
// returned error.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%w, stderr: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// ExecuteToWriter runs a command with its stdout streamed to w.
func (e *DefaultExecutor) ExecuteToWriter(ctx context.Context, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w, stderr: %s", err, stderr.String())
	}

	return nil
}

// Impl implements the Service interface.
type Impl struct {
	binary   string
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a new container runtime service.
func New(logger zerolog.Logger, binary string) *Impl {
	return &Impl{
		binary:   binary,
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new container runtime service with a custom
// executor (for testing).
func NewWithExecutor(logger zerolog.Logger, binary string, executor CommandExecutor) *Impl {
	return &Impl{
		binary:   binary,
		executor: executor,
		logger:   logger,
	}
}

// Running reports whether the named container exists and is running. A
// container unknown to the runtime is reported as not running.
func (s *Impl) Running(ctx context.Context, name string) (bool, error) {
	s.logger.Debug().Str("container", name).Msg("checking container state")

	output, err := s.executor.Execute(ctx, s.binary, "inspect", "--format", "{{.State.Running}}", name)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such") {
			return false, nil
		}
		return false, fmt.Errorf("inspecting container %s: %w", name, err)
	}

	return strings.TrimSpace(string(output)) == "true", nil
}

// ReadFile returns the contents of a file inside the container.
func (s *Impl) ReadFile(ctx context.Context, name, path string) ([]byte, error) {
	s.logger.Debug().Str("container", name).Str("path", path).Msg("reading file from container")

	output, err := s.executor.Execute(ctx, s.binary, "exec", name, "cat", path)
	if err != nil {
		return nil, fmt.Errorf("reading %s from container %s: %w", path, name, err)
	}

	return output, nil
}

// ExecToWriter runs a command inside the container with the given environment
// variables, streaming its stdout to w.
func (s *Impl) ExecToWriter(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
	execArgs := []string{"exec"}
	for _, e := range env {
		execArgs = append(execArgs, "-e", e)
	}
	execArgs = append(execArgs, name, command)
	execArgs = append(execArgs, args...)

	s.logger.Debug().Str("container", name).Str("command", command).Msg("executing command in container")

	if err := s.executor.ExecuteToWriter(ctx, w, s.binary, execArgs...); err != nil {
		return fmt.Errorf("%s in container %s: %w", command, name, err)
	}

	return nil
}
