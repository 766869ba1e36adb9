// Package features resolves a devcontainer's declared feature set into an
// installation plan: normalized references, a dependency graph, a concrete
// install order, and the entrypoint chain the container must run.
package features

import (
	"fmt"
	"strings"
)

// RefType classifies how a feature reference was expressed in config.
type RefType int

const (
	RefOCI RefType = iota
	RefLocal
	RefHTTP
)

// defaultRegistry is assumed for an OCI-shaped reference with no registry
// segment of its own, matching the devcontainer spec's ghcr.io default.
const defaultRegistry = "ghcr.io"

// FeatureRef is a normalized feature reference.
type FeatureRef struct {
	Raw      string
	Type     RefType
	Registry string // RefOCI only
	Path     string // RefOCI: namespace/name ; RefLocal: filesystem path ; RefHTTP: URL
	Tag      string // RefOCI only, "" if Digest is set or tag omitted (implies latest)
	Digest   string // RefOCI only, "" unless the ref pinned one with "@sha256:..."
}

// CanonicalID is the reference with any version qualifier stripped, used as
// the dependency-graph vertex id so "ghcr.io/x/y:1" and "ghcr.io/x/y:2" never
// coexist as distinct nodes.
func (r *FeatureRef) CanonicalID() string {
	switch r.Type {
	case RefOCI:
		return r.Registry + "/" + r.Path
	default:
		return r.Raw
	}
}

// String renders the reference including any version qualifier, suitable
// for use as an OCI pull reference.
func (r *FeatureRef) String() string {
	if r.Type != RefOCI {
		return r.Raw
	}
	ref := r.Registry + "/" + r.Path
	switch {
	case r.Digest != "":
		return ref + "@" + r.Digest
	case r.Tag != "":
		return ref + ":" + r.Tag
	default:
		return ref
	}
}

// ParseFeatureRef normalizes a feature id as declared in devcontainer.json's
// "features" object into a FeatureRef.
func ParseFeatureRef(raw string) (*FeatureRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("feature reference must not be blank")
	}

	switch {
	case strings.HasPrefix(trimmed, "https://"):
		return &FeatureRef{Raw: trimmed, Type: RefHTTP, Path: trimmed}, nil
	case strings.HasPrefix(trimmed, "./"), strings.HasPrefix(trimmed, "../"), strings.HasPrefix(trimmed, "/"):
		return &FeatureRef{Raw: trimmed, Type: RefLocal, Path: trimmed}, nil
	default:
		return parseOCIRef(trimmed)
	}
}

// parseOCIRef splits registry[:port]/namespace/name[:tag|@digest]. A
// reference with no detectable registry segment (no dot or colon before the
// first slash) is assumed to live on ghcr.io.
func parseOCIRef(raw string) (*FeatureRef, error) {
	withoutDigest := raw
	digest := ""
	if idx := strings.Index(raw, "@sha256:"); idx != -1 {
		withoutDigest = raw[:idx]
		digest = raw[idx+1:]
	}

	registry := defaultRegistry
	rest := withoutDigest

	if firstSlash := strings.Index(withoutDigest, "/"); firstSlash != -1 {
		candidate := withoutDigest[:firstSlash]
		if strings.ContainsAny(candidate, ".:") || candidate == "localhost" {
			registry = candidate
			rest = withoutDigest[firstSlash+1:]
		}
	}

	tag := ""
	if digest == "" {
		if idx := strings.LastIndex(rest, ":"); idx != -1 {
			tag = rest[idx+1:]
			rest = rest[:idx]
		}
	}

	if rest == "" {
		return nil, fmt.Errorf("invalid feature reference %q: missing path", raw)
	}

	return &FeatureRef{
		Raw:      raw,
		Type:     RefOCI,
		Registry: registry,
		Path:     rest,
		Tag:      tag,
		Digest:   digest,
	}, nil
}

// OptionDefinition describes one entry of a feature's declared "options" map.
type OptionDefinition struct {
	Type        string        `json:"type"`
	Default     interface{}   `json:"default,omitempty"`
	Description string        `json:"description,omitempty"`
	Proposals   []interface{} `json:"proposals,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
}

// FeatureMount is a mount a feature's devcontainer-feature.json contributes.
type FeatureMount struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Metadata is the parsed devcontainer-feature.json for one feature.
type Metadata struct {
	ID               string                            `json:"id"`
	Version          string                            `json:"version,omitempty"`
	Name             string                            `json:"name,omitempty"`
	DocumentationURL string                            `json:"documentationURL,omitempty"`
	LicenseURL       string                            `json:"licenseURL,omitempty"`
	Options          map[string]OptionDefinition        `json:"options,omitempty"`
	ContainerEnv     map[string]string                 `json:"containerEnv,omitempty"`
	Mounts           []FeatureMount                    `json:"mounts,omitempty"`
	Init             *bool                              `json:"init,omitempty"`
	Privileged       *bool                              `json:"privileged,omitempty"`
	CapAdd           []string                           `json:"capAdd,omitempty"`
	SecurityOpt      []string                           `json:"securityOpt,omitempty"`
	Entrypoint       string                             `json:"entrypoint,omitempty"`

	// DependsOn is id -> seed options; a hard dependency that is
	// auto-introduced into the graph (and seeded with these options) if it
	// wasn't already declared by the user, unless skip_auto_mapping is set.
	DependsOn map[string]map[string]interface{} `json:"dependsOn,omitempty"`

	// InstallsAfter is a soft ordering constraint: these ids only affect
	// ordering if they are already present in the graph for some other
	// reason; they are never auto-introduced.
	InstallsAfter []string `json:"installsAfter,omitempty"`
}

// Feature is a resolved node: its normalized reference, the options the
// effective config (or a dependsOn seed) supplied, and once fetched its
// metadata and on-disk location.
type Feature struct {
	Ref         *FeatureRef
	Options     map[string]interface{}
	Metadata    *Metadata
	Path        string // local directory containing devcontainer-feature.json and install.sh
	Digest      string // resolved OCI manifest digest, "" for local/http features
	UserDeclared bool  // true if the effective config declared this id directly (vs. auto-introduced via dependsOn)
	DeclOrder   int    // not set by Resolve; install-order tiebreaking uses the graph's own insertion order
}

// GetOptionValue returns the effective value for option name: the user's
// declared value if present, else the feature's declared default, else nil.
func (f *Feature) GetOptionValue(name string) interface{} {
	if v, ok := f.Options[name]; ok {
		return v
	}
	if f.Metadata == nil {
		return nil
	}
	if def, ok := f.Metadata.Options[name]; ok {
		return def.Default
	}
	return nil
}

// GetEnvVars renders a feature's option values as the environment variables
// its install.sh expects: "<OPTION_NAME_UPPER>".
func (f *Feature) GetEnvVars() map[string]string {
	env := map[string]string{}
	if f.Metadata == nil {
		return env
	}
	for name := range f.Metadata.Options {
		v := f.GetOptionValue(name)
		if v == nil {
			continue
		}
		env[NormalizeOptionName(name)] = fmt.Sprintf("%v", v)
	}
	return env
}

// NormalizeOptionName upper-cases an option name for use as an environment
// variable, per the devcontainer feature spec.
func NormalizeOptionName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
