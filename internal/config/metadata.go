package config

import "encoding/json"

// MetadataLabel is serialized into the built image's `devcontainer.metadata`
// label so that a later `up` (or a different machine entirely) can recover
// which features were baked in without re-resolving them.
type MetadataLabel struct {
	ConfigSubset   json.RawMessage        `json:"configSubset,omitempty"`
	AppliedFeatures []AppliedFeature       `json:"appliedFeatures,omitempty"`
	Customizations  map[string]interface{} `json:"customizations,omitempty"`
	LockfileHash    string                 `json:"lockfileHash,omitempty"`
}

// AppliedFeature is one entry of MetadataLabel.AppliedFeatures.
type AppliedFeature struct {
	ID      string                 `json:"id"`
	Version string                 `json:"version,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// ConfigSubset captures the fields of Config worth re-embedding in the image
// label: enough for staleness detection, not the whole document (secrets and
// host-only paths are deliberately excluded).
type ConfigSubset struct {
	Name            string   `json:"name,omitempty"`
	Image           string   `json:"image,omitempty"`
	WorkspaceFolder string   `json:"workspaceFolder,omitempty"`
	RemoteUser      string   `json:"remoteUser,omitempty"`
	RunArgs         []string `json:"runArgs,omitempty"`
}

// BuildConfigSubset extracts the ConfigSubset from an effective Config.
func BuildConfigSubset(c *Config) ConfigSubset {
	return ConfigSubset{
		Name:            c.Name,
		Image:           c.Image,
		WorkspaceFolder: c.WorkspaceFolder,
		RemoteUser:      c.RemoteUser,
		RunArgs:         c.RunArgs,
	}
}
