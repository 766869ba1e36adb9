// Package labels defines the deacon container label namespace: identity and
// staleness-detection labels attached to managed containers, and the
// devcontainer.metadata image label consumed by the config merger.
package labels

import (
	"encoding/json"
	"time"
)

// Prefix namespaces every label this package writes to a container.
const Prefix = "io.deacon"

// SchemaVersion is the current version of the container label schema.
const SchemaVersion = "1"

// MetadataLabelKey is the well-known image label holding the JSON-serialized
// MetadataLabel value, per the devcontainer image metadata convention.
const MetadataLabelKey = "devcontainer.metadata"

// RemoteEnvLabelPrefix marks an image label as an injected remote_env entry;
// the merger strips this prefix and folds the remainder into remote_env.
const RemoteEnvLabelPrefix = "deacon.remoteEnv."

// Container identity and staleness labels.
const (
	LabelSchemaVersion = Prefix + ".schema-version"
	LabelManaged       = Prefix + ".managed"
	LabelWorkspaceID   = Prefix + ".workspace.id"
	LabelWorkspacePath = Prefix + ".workspace.path"
	LabelConfigPath    = Prefix + ".config.path"

	LabelHashConfig   = Prefix + ".hash.config"
	LabelHashFeatures = Prefix + ".hash.features"
	LabelHashOverall  = Prefix + ".hash.overall"

	LabelCreatedAt      = Prefix + ".created-at"
	LabelCreatedBy      = Prefix + ".created-by"
	LabelLifecycleState = Prefix + ".lifecycle-state"

	LabelFeaturesInstalled = Prefix + ".features.installed"

	LabelComposeProject = Prefix + ".compose.project"
	LabelComposeService = Prefix + ".compose.service"
	LabelIsPrimary       = Prefix + ".primary"
)

// Lifecycle states recorded in LabelLifecycleState.
const (
	LifecycleStateCreated = "created"
	LifecycleStateReady   = "ready"
	LifecycleStateBroken  = "broken"
)

// AppliedFeature records one feature's identity and resolved options as
// baked into MetadataLabel.AppliedFeatures.
type AppliedFeature struct {
	ID      string                 `json:"id"`
	Version string                 `json:"version,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// MetadataLabel is the value serialized into the built image's
// devcontainer.metadata label: a config subset plus the features baked into
// that image, so a later `up` against the same image can recover what was
// applied without re-reading a devcontainer.json that may have since changed.
type MetadataLabel struct {
	ConfigSubset    json.RawMessage  `json:"configSubset,omitempty"`
	AppliedFeatures []AppliedFeature `json:"appliedFeatures,omitempty"`
	Customizations  json.RawMessage  `json:"customizations,omitempty"`
	LockfileHash    string           `json:"lockfileHash,omitempty"`
}

// MarshalValue serializes m for use as the devcontainer.metadata label body.
func (m MetadataLabel) MarshalValue() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseMetadataLabel decodes the devcontainer.metadata label body, if
// present in imageLabels. Returns (nil, nil) when the label is absent.
func ParseMetadataLabel(imageLabels map[string]string) (*MetadataLabel, error) {
	raw, ok := imageLabels[MetadataLabelKey]
	if !ok || raw == "" {
		return nil, nil
	}
	var m MetadataLabel
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// RemoteEnvFromImageLabels extracts deacon.remoteEnv.<NAME>=value labels as
// a plain name->value map, for the merger to fold into effective remote_env.
func RemoteEnvFromImageLabels(imageLabels map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range imageLabels {
		if len(k) <= len(RemoteEnvLabelPrefix) || k[:len(RemoteEnvLabelPrefix)] != RemoteEnvLabelPrefix {
			continue
		}
		name := k[len(RemoteEnvLabelPrefix):]
		if name != "" {
			out[name] = v
		}
	}
	return out
}

// ContainerLabels is the set of labels applied to a managed container at
// create time, read back to detect configuration drift on subsequent `up`.
type ContainerLabels struct {
	SchemaVersion string

	Managed     bool
	WorkspaceID string
	WorkspacePath string
	ConfigPath  string

	HashConfig   string
	HashFeatures string
	HashOverall  string

	CreatedAt      time.Time
	CreatedBy      string
	LifecycleState string

	FeaturesInstalled []string

	ComposeProject string
	ComposeService string
	IsPrimary      bool
}

// New returns a ContainerLabels with schema defaults populated.
func New() *ContainerLabels {
	return &ContainerLabels{
		SchemaVersion:     SchemaVersion,
		Managed:           true,
		FeaturesInstalled: []string{},
	}
}

// ToMap renders l as a docker label map, omitting unset optional fields.
func (l *ContainerLabels) ToMap() map[string]string {
	m := map[string]string{
		LabelSchemaVersion: l.SchemaVersion,
		LabelManaged:       boolString(l.Managed),
	}

	setIfNotEmpty(m, LabelWorkspaceID, l.WorkspaceID)
	setIfNotEmpty(m, LabelWorkspacePath, l.WorkspacePath)
	setIfNotEmpty(m, LabelConfigPath, l.ConfigPath)

	setIfNotEmpty(m, LabelHashConfig, l.HashConfig)
	setIfNotEmpty(m, LabelHashFeatures, l.HashFeatures)
	setIfNotEmpty(m, LabelHashOverall, l.HashOverall)

	if !l.CreatedAt.IsZero() {
		m[LabelCreatedAt] = l.CreatedAt.Format(time.RFC3339)
	}
	setIfNotEmpty(m, LabelCreatedBy, l.CreatedBy)
	setIfNotEmpty(m, LabelLifecycleState, l.LifecycleState)

	if len(l.FeaturesInstalled) > 0 {
		if data, err := json.Marshal(l.FeaturesInstalled); err == nil {
			m[LabelFeaturesInstalled] = string(data)
		}
	}

	setIfNotEmpty(m, LabelComposeProject, l.ComposeProject)
	setIfNotEmpty(m, LabelComposeService, l.ComposeService)
	if l.IsPrimary {
		m[LabelIsPrimary] = "true"
	}

	return m
}

// FromMap reconstructs ContainerLabels from a container's label map.
// Unrecognized or malformed values are left at their zero value rather than
// erroring: labels are written by this binary and should always parse, but a
// container created by an older schema version must still inspect cleanly.
func FromMap(m map[string]string) *ContainerLabels {
	l := New()

	l.SchemaVersion = m[LabelSchemaVersion]
	l.Managed = m[LabelManaged] == "true"

	l.WorkspaceID = m[LabelWorkspaceID]
	l.WorkspacePath = m[LabelWorkspacePath]
	l.ConfigPath = m[LabelConfigPath]

	l.HashConfig = m[LabelHashConfig]
	l.HashFeatures = m[LabelHashFeatures]
	l.HashOverall = m[LabelHashOverall]

	if t, err := time.Parse(time.RFC3339, m[LabelCreatedAt]); err == nil {
		l.CreatedAt = t
	}
	l.CreatedBy = m[LabelCreatedBy]
	l.LifecycleState = m[LabelLifecycleState]

	if data := m[LabelFeaturesInstalled]; data != "" {
		_ = json.Unmarshal([]byte(data), &l.FeaturesInstalled)
	}

	l.ComposeProject = m[LabelComposeProject]
	l.ComposeService = m[LabelComposeService]
	l.IsPrimary = m[LabelIsPrimary] == "true"

	return l
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func setIfNotEmpty(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
