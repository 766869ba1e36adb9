package compose

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/deacon-dev/deacon/internal/config"
	"github.com/deacon-dev/deacon/internal/features"
	"github.com/deacon-dev/deacon/internal/labels"
	"github.com/deacon-dev/deacon/internal/parse"
	"github.com/deacon-dev/deacon/internal/selinux"
	"gopkg.in/yaml.v3"
)

// overrideGenerator generates the deacon compose override file. cfg is
// expected to already be fully substituted (merge.Merge has run) so no
// variable substitution happens here.
type overrideGenerator struct {
	cfg              *config.Config
	workspaceID      string
	envKey           string
	configHash       string
	composeProject   string
	workspacePath    string
	derivedImage     string             // Derived image to use instead of service's image
	resolvedFeatures []*features.Feature // Resolved features for runtime config
}

// ComposeOverride represents the override file structure.
type ComposeOverride struct {
	Services map[string]ServiceOverride `yaml:"services"`
}

// ServiceOverride represents overrides for a single service.
type ServiceOverride struct {
	Image       string            `yaml:"image,omitempty"`
	PullPolicy  string            `yaml:"pull_policy,omitempty"`
	Entrypoint  []string          `yaml:"entrypoint,omitempty"`
	Command     []string          `yaml:"command,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
	WorkingDir  string            `yaml:"working_dir,omitempty"`
	User        string            `yaml:"user,omitempty"`
	CapAdd      []string          `yaml:"cap_add,omitempty"`
	CapDrop     []string          `yaml:"cap_drop,omitempty"`
	SecurityOpt []string          `yaml:"security_opt,omitempty"`
	Privileged  *bool             `yaml:"privileged,omitempty"`
	Init        *bool             `yaml:"init,omitempty"`
	ShmSize     string            `yaml:"shm_size,omitempty"`
	Devices     []string          `yaml:"devices,omitempty"`
	ExtraHosts  []string          `yaml:"extra_hosts,omitempty"`
	NetworkMode string            `yaml:"network_mode,omitempty"`
	IpcMode     string            `yaml:"ipc,omitempty"`
	PidMode     string            `yaml:"pid,omitempty"`
	Ulimits     map[string]Ulimit `yaml:"ulimits,omitempty"`
	Sysctls     map[string]string `yaml:"sysctls,omitempty"`
	Tmpfs       []string          `yaml:"tmpfs,omitempty"`
	Ports       []string          `yaml:"ports,omitempty"`
}

// Ulimit represents a ulimit configuration.
type Ulimit struct {
	Soft int `yaml:"soft"`
	Hard int `yaml:"hard"`
}

// Generate creates the override YAML content.
func (g *overrideGenerator) Generate() (string, error) {
	override := ComposeOverride{
		Services: make(map[string]ServiceOverride),
	}

	primaryOverride, err := g.generatePrimaryServiceOverride()
	if err != nil {
		return "", err
	}
	override.Services[g.cfg.Service] = primaryOverride

	for _, svc := range g.cfg.RunServices {
		if svc != g.cfg.Service {
			override.Services[svc] = g.generateRunServiceOverride(svc)
		}
	}

	data, err := yaml.Marshal(override)
	if err != nil {
		return "", fmt.Errorf("failed to marshal override: %w", err)
	}

	return string(data), nil
}

// generatePrimaryServiceOverride creates the override for the primary service.
func (g *overrideGenerator) generatePrimaryServiceOverride() (ServiceOverride, error) {
	svc := ServiceOverride{
		Labels:      make(map[string]string),
		Environment: make(map[string]string),
	}

	if g.derivedImage != "" {
		svc.Image = g.derivedImage
		// We've already built the derived image with features installed;
		// never let compose --build overwrite it.
		svc.PullPolicy = "never"
	}

	if g.cfg.OverrideCommand != nil && *g.cfg.OverrideCommand {
		svc.Entrypoint = []string{"/bin/sh", "-c"}
		svc.Command = []string{"while sleep 1000; do :; done"}
	}

	g.addLabels(svc.Labels, true)

	containerWorkspace := g.cfg.WorkspaceFolder
	if containerWorkspace == "" {
		containerWorkspace = "/workspaces/" + lastPathElement(g.workspacePath)
	}
	svc.WorkingDir = containerWorkspace
	svc.Volumes = append(svc.Volumes, g.formatMount(g.workspacePath, containerWorkspace))

	g.cfg.ContainerEnv.Range(func(k, v string) bool {
		svc.Environment[k] = v
		return true
	})
	g.cfg.RemoteEnv.Range(func(k string, v *string) bool {
		if v != nil {
			svc.Environment[k] = *v
		}
		return true
	})

	for _, m := range g.cfg.Mounts {
		if parsed := g.parseMountString(m.String()); parsed != "" {
			svc.Volumes = append(svc.Volumes, parsed)
		}
	}

	for _, f := range g.resolvedFeatures {
		if f.Metadata == nil {
			continue
		}
		for _, m := range f.Metadata.Mounts {
			spec := fmt.Sprintf("source=%s,target=%s,type=%s", m.Source, m.Target, m.Type)
			if parsed := g.parseMountString(spec); parsed != "" {
				svc.Volumes = append(svc.Volumes, parsed)
			}
		}
	}

	if g.cfg.RemoteUser != "" {
		svc.User = g.cfg.RemoteUser
	} else if g.cfg.ContainerUser != "" {
		svc.User = g.cfg.ContainerUser
	}

	g.mapRunArgsToService(&svc)

	var privilegedFeatures []string
	needsInit := false
	for _, f := range g.resolvedFeatures {
		if f.Metadata == nil {
			continue
		}
		svc.CapAdd = append(svc.CapAdd, f.Metadata.CapAdd...)
		svc.SecurityOpt = append(svc.SecurityOpt, f.Metadata.SecurityOpt...)
		if f.Metadata.Privileged != nil && *f.Metadata.Privileged {
			privilegedFeatures = append(privilegedFeatures, f.Metadata.ID)
		}
		if f.Metadata.Init != nil && *f.Metadata.Init {
			needsInit = true
		}
	}
	if len(privilegedFeatures) > 0 {
		t := true
		svc.Privileged = &t
		fmt.Printf("Warning: Enabling privileged mode (requested by features: %s)\n", strings.Join(privilegedFeatures, ", "))
		fmt.Println("  Privileged mode grants full access to host devices and bypasses security features.")
	}
	if needsInit {
		t := true
		svc.Init = &t
	}

	return svc, nil
}

// generateRunServiceOverride creates the override for a non-primary runService.
func (g *overrideGenerator) generateRunServiceOverride(serviceName string) ServiceOverride {
	svc := ServiceOverride{
		Labels: make(map[string]string),
	}

	g.addLabels(svc.Labels, false)

	containerWorkspace := g.cfg.WorkspaceFolder
	if containerWorkspace == "" {
		containerWorkspace = "/workspaces/" + lastPathElement(g.workspacePath)
	}
	svc.Volumes = append(svc.Volumes, g.formatMount(g.workspacePath, containerWorkspace))

	// "build" forces a rebuild of non-primary services with a Dockerfile
	// whenever config changes, instead of reusing a stale cached image.
	svc.PullPolicy = "build"

	return svc
}

// addLabels adds deacon identity labels to the service.
func (g *overrideGenerator) addLabels(dst map[string]string, isPrimary bool) {
	l := labels.New()
	l.WorkspaceID = g.workspaceID
	l.WorkspacePath = g.workspacePath
	l.HashConfig = g.configHash
	l.HashOverall = g.configHash
	l.ComposeProject = g.composeProject
	l.ComposeService = g.cfg.Service
	l.IsPrimary = isPrimary
	l.LifecycleState = labels.LifecycleStateCreated

	for k, v := range l.ToMap() {
		dst[k] = v
	}
}

// formatMount formats a mount string with SELinux handling.
func (g *overrideGenerator) formatMount(source, target string) string {
	suffix := ""
	if runtime.GOOS == "linux" {
		if mode, err := selinux.GetMode(); err == nil && mode == selinux.ModeEnforcing {
			suffix = ":Z"
		}
	}
	return fmt.Sprintf("%s:%s%s", source, target, suffix)
}

// parseMountString parses a devcontainer mount string and returns a
// compose-compatible format, using the shared parse.ParseMount helper.
func (g *overrideGenerator) parseMountString(mount string) string {
	m := parse.ParseMount(mount)
	if m == nil {
		return ""
	}

	suffix := ""
	if m.Type == "bind" && runtime.GOOS == "linux" {
		if mode, err := selinux.GetMode(); err == nil && mode == selinux.ModeEnforcing {
			suffix = ":Z"
		}
	}

	return m.ToComposeFormat(suffix)
}

// mapRunArgsToService maps devcontainer runArgs to compose service options,
// using the shared parse.ParseRunArgs helper.
func (g *overrideGenerator) mapRunArgsToService(svc *ServiceOverride) {
	parsed := parse.ParseRunArgs(g.cfg.RunArgs)
	if parsed != nil {
		svc.CapAdd = append(svc.CapAdd, parsed.CapAdd...)
		svc.CapDrop = append(svc.CapDrop, parsed.CapDrop...)
		svc.SecurityOpt = append(svc.SecurityOpt, parsed.SecurityOpt...)

		if parsed.Privileged {
			t := true
			svc.Privileged = &t
		}
		if parsed.Init {
			t := true
			svc.Init = &t
		}

		svc.ShmSize = parsed.ShmSize
		svc.Devices = append(svc.Devices, parsed.Devices...)
		svc.ExtraHosts = append(svc.ExtraHosts, parsed.ExtraHosts...)
		svc.NetworkMode = parsed.NetworkMode
		svc.IpcMode = parsed.IpcMode
		svc.PidMode = parsed.PidMode
		svc.Tmpfs = append(svc.Tmpfs, parsed.Tmpfs...)
		svc.Ports = append(svc.Ports, parsed.Ports...)

		if len(parsed.Sysctls) > 0 {
			if svc.Sysctls == nil {
				svc.Sysctls = make(map[string]string)
			}
			for k, v := range parsed.Sysctls {
				svc.Sysctls[k] = v
			}
		}
	}

	if g.cfg.Privileged != nil && *g.cfg.Privileged {
		t := true
		svc.Privileged = &t
	}
	if g.cfg.Init != nil && *g.cfg.Init {
		t := true
		svc.Init = &t
	}
	if len(g.cfg.CapAdd) > 0 {
		svc.CapAdd = append(svc.CapAdd, g.cfg.CapAdd...)
	}
	if len(g.cfg.SecurityOpt) > 0 {
		svc.SecurityOpt = append(svc.SecurityOpt, g.cfg.SecurityOpt...)
	}

	if forwardPorts := g.cfg.GetForwardPorts(); len(forwardPorts) > 0 {
		svc.Ports = append(svc.Ports, forwardPorts...)
	}
}

func lastPathElement(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
