// Package config defines the devcontainer value model (Config,
// FeatureMetadata, ResolvedFeature, MetadataLabel) and the loader that
// discovers and parses a devcontainer.json/.jsonc file from a workspace.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config is the parsed, pre-substitution devcontainer specification.
type Config struct {
	Name string `json:"name,omitempty"`

	Image string       `json:"image,omitempty"`
	Build *BuildConfig `json:"build,omitempty"`

	DockerComposeFile interface{} `json:"dockerComposeFile,omitempty"` // string or []string
	Service           string      `json:"service,omitempty"`
	RunServices       []string    `json:"runServices,omitempty"`

	WorkspaceFolder string `json:"workspaceFolder,omitempty"`
	WorkspaceMount  string `json:"workspaceMount,omitempty"`

	RemoteUser          string `json:"remoteUser,omitempty"`
	ContainerUser       string `json:"containerUser,omitempty"`
	UpdateRemoteUserUID *bool  `json:"updateRemoteUserUID,omitempty"`

	// ContainerEnv and RemoteEnv must preserve declaration order: it is
	// observable through merge precedence and substitution reporting.
	ContainerEnv *OrderedMap[string]  `json:"containerEnv,omitempty"`
	RemoteEnv    *OrderedMap[*string] `json:"remoteEnv,omitempty"` // nil value = inherit from probe/host

	// Features preserves declaration order: it seeds the feature resolver's
	// insertion-order tiebreak.
	Features                    *OrderedMap[json.RawMessage] `json:"features,omitempty"`
	OverrideFeatureInstallOrder []string                     `json:"overrideFeatureInstallOrder,omitempty"`

	ForwardPorts         []interface{}          `json:"forwardPorts,omitempty"`
	AppPort              interface{}            `json:"appPort,omitempty"`
	PortsAttributes      map[string]interface{} `json:"portsAttributes,omitempty"`
	OtherPortsAttributes interface{}            `json:"otherPortsAttributes,omitempty"`

	Mounts  []Mount  `json:"mounts,omitempty"`
	RunArgs []string `json:"runArgs,omitempty"`

	InitializeCommand    LifecycleCommand `json:"initializeCommand,omitempty"`
	OnCreateCommand      LifecycleCommand `json:"onCreateCommand,omitempty"`
	UpdateContentCommand LifecycleCommand `json:"updateContentCommand,omitempty"`
	PostCreateCommand    LifecycleCommand `json:"postCreateCommand,omitempty"`
	PostStartCommand     LifecycleCommand `json:"postStartCommand,omitempty"`
	PostAttachCommand    LifecycleCommand `json:"postAttachCommand,omitempty"`
	WaitFor              string           `json:"waitFor,omitempty"`

	UserEnvProbe string `json:"userEnvProbe,omitempty"`

	OverrideCommand *bool    `json:"overrideCommand,omitempty"`
	ShutdownAction  string   `json:"shutdownAction,omitempty"`
	Init            *bool    `json:"init,omitempty"`
	Privileged      *bool    `json:"privileged,omitempty"`
	CapAdd          []string `json:"capAdd,omitempty"`
	SecurityOpt     []string `json:"securityOpt,omitempty"`

	HostRequirements *HostRequirements `json:"hostRequirements,omitempty"`

	Customizations map[string]interface{} `json:"customizations,omitempty"`

	// unknownKeys retains any top-level keys this struct does not model, so
	// they can be logged at debug and re-embedded in the metadata label.
	unknownKeys map[string]json.RawMessage
	rawJSON     []byte
}

// BuildConfig is the Dockerfile-based image descriptor.
type BuildConfig struct {
	Dockerfile string            `json:"dockerfile,omitempty"`
	Context    string            `json:"context,omitempty"`
	Args       map[string]string `json:"args,omitempty"`
	Target     string            `json:"target,omitempty"`
	CacheFrom  []string          `json:"cacheFrom,omitempty"`
	Options    []string          `json:"options,omitempty"`
}

// HostRequirements specifies host machine requirements, including the declared GPU requirement.
type HostRequirements struct {
	CPUs    int         `json:"cpus,omitempty"`
	Memory  string      `json:"memory,omitempty"`
	Storage string      `json:"storage,omitempty"`
	GPU     interface{} `json:"gpu,omitempty"` // bool, "optional", or {cores,memory}
}

// PortAttribute describes per-port forwarding behavior.
type PortAttribute struct {
	Label            string `json:"label,omitempty"`
	Protocol         string `json:"protocol,omitempty"`
	OnAutoForward    string `json:"onAutoForward,omitempty"`
	RequireLocalPort bool   `json:"requireLocalPort,omitempty"`
	ElevateIfNeeded  bool   `json:"elevateIfNeeded,omitempty"`
}

// Mount is a bind/volume mount, accepted in either string or object form.
type Mount struct {
	Source   string `json:"source,omitempty"`
	Target   string `json:"target,omitempty"`
	Type     string `json:"type,omitempty"`
	ReadOnly bool   `json:"readonly,omitempty"`
	Raw      string `json:"-"`
}

func (m *Mount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Raw = s
		for _, part := range strings.Split(s, ",") {
			if part == "readonly" || part == "ro" {
				m.ReadOnly = true
				continue
			}
			kv := strings.SplitN(part, "=", 2)
			if len(kv) != 2 {
				continue
			}
			key, value := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
			switch key {
			case "source", "src":
				m.Source = value
			case "target", "dst", "destination":
				m.Target = value
			case "type":
				m.Type = value
			case "readonly", "ro":
				m.ReadOnly = value == "true" || value == "1"
			}
		}
		return nil
	}

	type mountAlias Mount
	var obj mountAlias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*m = Mount(obj)
	return nil
}

func (m Mount) String() string {
	if m.Raw != "" {
		return m.Raw
	}
	if m.Type == "" {
		m.Type = "bind"
	}
	s := fmt.Sprintf("type=%s,source=%s,target=%s", m.Type, m.Source, m.Target)
	if m.ReadOnly {
		s += ",readonly"
	}
	return s
}

// CommandSource tags which side of a merge contributed a lifecycle command.
type CommandSource string

const (
	SourceConfig          CommandSource = "Config"
	sourceFeaturePrefix   string        = "Feature("
)

// SourceFeature formats the "Feature(<id>)" source tag used in failure attribution.
func SourceFeature(id string) CommandSource {
	return CommandSource(sourceFeaturePrefix + id + ")")
}

// LifecycleCommand is the polymorphic command value devcontainer.json allows
// at each lifecycle slot: a shell string, an argv vector, or a mapping of
// named groups that run concurrently. Dispatch is by shape, not by a Go
// interface hierarchy, matching the spec's "tagged variant" design note.
type LifecycleCommand struct {
	Shell  *string
	Argv   []string
	Groups *OrderedMap[LifecycleCommand]
}

// IsEmpty reports whether no command was declared for this slot.
func (c LifecycleCommand) IsEmpty() bool {
	return c.Shell == nil && c.Argv == nil && c.Groups == nil
}

func (c LifecycleCommand) MarshalJSON() ([]byte, error) {
	switch {
	case c.Groups != nil:
		return c.Groups.MarshalJSON()
	case c.Argv != nil:
		return json.Marshal(c.Argv)
	case c.Shell != nil:
		return json.Marshal(*c.Shell)
	default:
		return []byte("null"), nil
	}
}

func (c *LifecycleCommand) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*c = LifecycleCommand{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = LifecycleCommand{Shell: &s}
		return nil
	}

	var argv []string
	if err := json.Unmarshal(data, &argv); err == nil {
		*c = LifecycleCommand{Argv: argv}
		return nil
	}

	groups := NewOrderedMap[LifecycleCommand]()
	if err := groups.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("lifecycle command: unsupported shape: %w", err)
	}
	*c = LifecycleCommand{Groups: groups}
	return nil
}

// AggregatedCommand is a lifecycle command tagged with the source that
// contributed it (Config or Feature(<id>)), preserved in declaration order
// within its source for phase execution and failure attribution.
type AggregatedCommand struct {
	Source  CommandSource    `json:"source"`
	Command LifecycleCommand `json:"command"`
}

// GetDockerComposeFiles normalizes DockerComposeFile into a string slice.
func (c *Config) GetDockerComposeFiles() []string {
	switch v := c.DockerComposeFile.(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

func (c *Config) IsComposePlan() bool { return c.DockerComposeFile != nil }
func (c *Config) IsSinglePlan() bool  { return c.Image != "" || c.Build != nil }

func (c *Config) GetRawJSON() []byte     { return c.rawJSON }
func (c *Config) SetRawJSON(data []byte) { c.rawJSON = data }

// UnknownKeys returns top-level keys not modeled by Config, retained for the
// metadata label and logged at debug by the loader.
func (c *Config) UnknownKeys() map[string]json.RawMessage { return c.unknownKeys }

func formatPort(port int) string { return fmt.Sprintf("%d:%d", port, port) }

// GetForwardPorts normalizes ForwardPorts entries (int or string) into docker-style port specs.
func (c *Config) GetForwardPorts() []string {
	if len(c.ForwardPorts) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.ForwardPorts))
	for _, p := range c.ForwardPorts {
		switch v := p.(type) {
		case float64:
			out = append(out, formatPort(int(v)))
		case int:
			out = append(out, formatPort(v))
		case string:
			out = append(out, v)
		}
	}
	return out
}

// GetAppPorts normalizes AppPort (int, string, or array of either) into docker-style port specs.
func (c *Config) GetAppPorts() []string {
	if c.AppPort == nil {
		return nil
	}
	var out []string
	switch v := c.AppPort.(type) {
	case float64:
		out = append(out, formatPort(int(v)))
	case int:
		out = append(out, formatPort(v))
	case string:
		out = append(out, v)
	case []interface{}:
		for _, p := range v {
			switch pv := p.(type) {
			case float64:
				out = append(out, formatPort(int(pv)))
			case int:
				out = append(out, formatPort(pv))
			case string:
				out = append(out, pv)
			}
		}
	}
	return out
}

func (c *Config) GetPortAttribute(port string) *PortAttribute {
	if c.PortsAttributes == nil {
		return nil
	}
	attr, ok := c.PortsAttributes[port]
	if !ok {
		return nil
	}
	attrMap, ok := attr.(map[string]interface{})
	if !ok {
		return nil
	}
	result := &PortAttribute{}
	if label, ok := attrMap["label"].(string); ok {
		result.Label = label
	}
	if protocol, ok := attrMap["protocol"].(string); ok {
		result.Protocol = protocol
	}
	if onAutoForward, ok := attrMap["onAutoForward"].(string); ok {
		result.OnAutoForward = onAutoForward
	}
	if requireLocalPort, ok := attrMap["requireLocalPort"].(bool); ok {
		result.RequireLocalPort = requireLocalPort
	}
	if elevateIfNeeded, ok := attrMap["elevateIfNeeded"].(bool); ok {
		result.ElevateIfNeeded = elevateIfNeeded
	}
	return result
}
