// Package probe captures a container's effective environment by running a
// shell probe through the runtime driver, then layers it under the
// devcontainer's declared remoteEnv and any CLI overrides.
package probe

import (
	"bufio"
	"context"
	"strings"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// Mode selects which shell invocation is used to capture the environment.
type Mode string

const (
	None                  Mode = "none"
	InteractiveShell      Mode = "interactiveShell"
	LoginShell            Mode = "loginShell"
	LoginInteractiveShell Mode = "loginInteractiveShell"
)

// Command returns the argv used to capture env under mode, or nil for None.
func Command(mode Mode) []string {
	switch mode {
	case InteractiveShell:
		return []string{"sh", "-ic", "env"}
	case LoginShell:
		return []string{"sh", "-lc", "env"}
	case LoginInteractiveShell:
		return []string{"sh", "-lic", "env"}
	case None, "":
		return nil
	default:
		return nil
	}
}

// ParseMode normalizes a config-declared string into a Mode, defaulting to
// None for anything unrecognized.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case InteractiveShell, LoginShell, LoginInteractiveShell:
		return Mode(s)
	default:
		return None
	}
}

// Execer runs a one-shot command in the target container and returns its
// combined stdout. The docker package's Client supplies the concrete
// implementation so this package stays free of any docker/compose dependency.
type Execer interface {
	ExecOutput(ctx context.Context, containerID string, argv []string, user string) (output string, exitCode int, err error)
}

// Prober captures and caches a container's probed environment.
type Prober struct {
	Exec  Execer
	Cache Cache // nil disables caching
}

func NewProber(exec Execer, cache Cache) *Prober {
	return &Prober{Exec: exec, Cache: cache}
}

// Probe runs the shell probe for mode against containerID as user, parsing
// "KEY=value" lines. Mode None yields an empty map without invoking Exec.
func (p *Prober) Probe(ctx context.Context, containerID string, mode Mode, user string) (map[string]string, error) {
	argv := Command(mode)
	if argv == nil {
		return map[string]string{}, nil
	}

	key := Key{ContainerID: containerID, Mode: string(mode), User: user}
	if p.Cache != nil {
		if cached, ok := p.Cache.Get(key); ok {
			return cached, nil
		}
	}

	output, exitCode, err := p.Exec.ExecOutput(ctx, containerID, argv, user)
	if err != nil {
		return nil, coreerrors.ProbeShellFailed(string(mode), err)
	}
	if exitCode != 0 {
		return nil, coreerrors.ProbeShellFailed(string(mode), nil)
	}

	parsed := parseEnv(output)
	if p.Cache != nil {
		p.Cache.Set(key, parsed)
	}
	return parsed, nil
}

func parseEnv(output string) map[string]string {
	env := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		env[line[:idx]] = line[idx+1:]
	}
	return env
}

// Key identifies one cacheable probe result.
type Key struct {
	ContainerID string
	Mode        string
	User        string
}

// Cache is the minimal surface Prober needs; internal/cache.Facade
// satisfies it once wrapped for map[string]string values.
type Cache interface {
	Get(key Key) (map[string]string, bool)
	Set(key Key, value map[string]string)
}
