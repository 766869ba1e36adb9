package labels

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Manager reads and writes deacon container labels against a docker daemon.
type Manager struct {
	docker client.APIClient
	logger *slog.Logger
}

func NewManager(dockerClient client.APIClient, logger *slog.Logger) *Manager {
	return &Manager{docker: dockerClient, logger: logger}
}

// BuildOptions carries the identity and hash data a managed container is
// labeled with at create time.
type BuildOptions struct {
	WorkspaceID   string
	WorkspacePath string
	ConfigPath    string
	CreatedBy     string

	HashConfig   string
	HashFeatures string
	HashOverall  string

	FeaturesInstalled []string

	ComposeProject string
	ComposeService string
	IsPrimary      bool
}

// Build produces the ContainerLabels for a newly created container.
func (m *Manager) Build(opts BuildOptions) *ContainerLabels {
	l := New()

	l.WorkspaceID = opts.WorkspaceID
	l.WorkspacePath = opts.WorkspacePath
	l.ConfigPath = opts.ConfigPath
	l.CreatedBy = opts.CreatedBy
	l.CreatedAt = time.Now()
	l.LifecycleState = LifecycleStateCreated

	l.HashConfig = opts.HashConfig
	l.HashFeatures = opts.HashFeatures
	l.HashOverall = opts.HashOverall

	l.FeaturesInstalled = opts.FeaturesInstalled
	l.ComposeProject = opts.ComposeProject
	l.ComposeService = opts.ComposeService
	l.IsPrimary = opts.IsPrimary

	return l
}

// Read fetches and parses labels directly off a running or stopped container.
func (m *Manager) Read(ctx context.Context, containerID string) (*ContainerLabels, error) {
	info, err := m.docker.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("inspect container: %w", err)
	}
	return FromMap(info.Config.Labels), nil
}

// ConfigHashes are the current, freshly-computed hashes to compare against
// what a container was created with.
type ConfigHashes struct {
	Config   string
	Features string
	Overall  string
}

// StalenessResult reports whether a container's configuration has drifted
// since it was created.
type StalenessResult struct {
	IsStale bool
	Reason  string
	Changes []string
}

// CheckStaleness compares current against the hashes recorded on containerID
// at creation time.
func (m *Manager) CheckStaleness(ctx context.Context, containerID string, current ConfigHashes) (*StalenessResult, error) {
	l, err := m.Read(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	result := &StalenessResult{Changes: []string{}}

	if l.HashOverall == "" {
		result.IsStale = true
		result.Reason = "no recorded configuration hash on container"
		return result, nil
	}

	if current.Config != "" && l.HashConfig != "" && current.Config != l.HashConfig {
		result.Changes = append(result.Changes, "devcontainer.json changed")
	}
	if current.Features != "" && l.HashFeatures != "" && current.Features != l.HashFeatures {
		result.Changes = append(result.Changes, "features changed")
	}
	if current.Overall != "" && l.HashOverall != "" && current.Overall != l.HashOverall {
		result.Changes = append(result.Changes, "configuration changed")
	}

	if len(result.Changes) > 0 {
		result.IsStale = true
		result.Reason = fmt.Sprintf("configuration drift: %v", result.Changes)
	}

	return result, nil
}

// ContainerInfo pairs a container's docker identity with its parsed labels.
type ContainerInfo struct {
	ID     string
	Names  []string
	State  string
	Labels *ContainerLabels
}

// ListByWorkspace returns every managed container labeled with workspaceID.
func (m *Manager) ListByWorkspace(ctx context.Context, workspaceID string) ([]ContainerInfo, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("label", fmt.Sprintf("%s=true", LabelManaged))
	filterArgs.Add("label", fmt.Sprintf("%s=%s", LabelWorkspaceID, workspaceID))

	containers, err := m.docker.ContainerList(ctx, container.ListOptions{All: true, Filters: filterArgs})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	result := make([]ContainerInfo, 0, len(containers))
	for _, c := range containers {
		result = append(result, ContainerInfo{
			ID:     c.ID,
			Names:  c.Names,
			State:  c.State,
			Labels: FromMap(c.Labels),
		})
	}
	return result, nil
}

// FindPrimaryContainer returns the primary container for workspaceID, or nil
// if none is running.
func (m *Manager) FindPrimaryContainer(ctx context.Context, workspaceID string) (*ContainerInfo, error) {
	containers, err := m.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	for i := range containers {
		if containers[i].Labels.IsPrimary {
			return &containers[i], nil
		}
	}
	return nil, nil
}
