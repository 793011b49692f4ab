// Package inspect queries Docker for the containers behind failed backends.
package inspect

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/rs/zerolog"
)

// ContainerFormat is the docker ps template used for inspection output.
const ContainerFormat = "{{.Names}}: {{.Status}}"

// NoContainers is reported when docker ps matches nothing.
const NoContainers = "no matching containers"

// Service defines the interface for container inspection.
type Service interface {
	Inspect(ctx context.Context, cfg models.InspectConfig, backend models.Backend) (*models.InspectResult, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its combined output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Impl implements the inspect Service interface.
type Impl struct {
	executor CommandExecutor
	remote   *RemoteRunner
	logger   zerolog.Logger
}

// New creates a new inspect service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		remote:   NewRemoteRunner(&DefaultClientFactory{}),
		logger:   logger,
	}
}

// NewWithExecutors creates a new inspect service with custom executors (for testing).
func NewWithExecutors(logger zerolog.Logger, executor CommandExecutor, factory ClientFactory) *Impl {
	return &Impl{
		executor: executor,
		remote:   NewRemoteRunner(factory),
		logger:   logger,
	}
}

// HintCommand returns the manual check suggested for a failed backend.
func HintCommand(backend models.Backend) string {
	return "docker ps | grep " + backend.ContainerFilter()
}

// DockerArgs returns the docker ps arguments for backend.
func DockerArgs(backend models.Backend) []string {
	return []string{
		"ps", "--all",
		"--filter", "name=" + backend.ContainerFilter(),
		"--format", ContainerFormat,
	}
}

// RemoteCommand returns the docker ps invocation as a single shell line.
func RemoteCommand(backend models.Backend) string {
	args := DockerArgs(backend)
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, "docker")
	for _, a := range args {
		quoted = append(quoted, shellQuote(a))
	}
	return strings.Join(quoted, " ")
}

// Inspect lists the containers matching backend's container filter.
func (s *Impl) Inspect(ctx context.Context, cfg models.InspectConfig, backend models.Backend) (*models.InspectResult, error) {
	result := &models.InspectResult{Backend: backend}

	var output []byte
	var err error

	if cfg.SSH != nil {
		result.Command = RemoteCommand(backend)
		s.logger.Debug().
			Str("host", cfg.SSH.Host).
			Str("command", result.Command).
			Msg("inspecting containers over SSH")
		output, err = s.remote.Run(ctx, *cfg.SSH, result.Command)
	} else {
		args := DockerArgs(backend)
		result.Command = "docker " + strings.Join(args, " ")
		s.logger.Debug().Str("command", result.Command).Msg("inspecting local containers")
		output, err = s.executor.Execute(ctx, "docker", args...)
	}

	result.Output = strings.TrimSpace(string(output))
	if err != nil {
		result.Error = fmt.Errorf("docker ps failed: %w", err)
		return result, nil
	}

	result.CommandRun = true
	if result.Output == "" {
		result.Output = NoContainers
	}

	s.logger.Debug().
		Str("backend", string(backend)).
		Str("output", result.Output).
		Msg("inspection completed")

	return result, nil
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`{}*?;&|<>()") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
