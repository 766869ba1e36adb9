package config

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// knownTopLevelKeys mirrors Config's json tags; anything else found at the
// top level is retained verbatim (for the metadata label) and logged at debug.
var knownTopLevelKeys = map[string]struct{}{
	"name": {}, "image": {}, "build": {}, "dockerComposeFile": {}, "service": {},
	"runServices": {}, "workspaceFolder": {}, "workspaceMount": {}, "remoteUser": {},
	"containerUser": {}, "updateRemoteUserUID": {}, "containerEnv": {}, "remoteEnv": {},
	"features": {}, "overrideFeatureInstallOrder": {}, "forwardPorts": {}, "appPort": {},
	"portsAttributes": {}, "otherPortsAttributes": {}, "mounts": {}, "runArgs": {},
	"initializeCommand": {}, "onCreateCommand": {}, "updateContentCommand": {},
	"postCreateCommand": {}, "postStartCommand": {}, "postAttachCommand": {}, "waitFor": {},
	"userEnvProbe": {}, "overrideCommand": {}, "shutdownAction": {}, "init": {},
	"privileged": {}, "capAdd": {}, "securityOpt": {}, "hostRequirements": {}, "customizations": {},
}

// Parse strips JSONC syntax (comments, trailing commas) and unmarshals into a Config.
func Parse(data []byte) (*Config, error) {
	stripped := jsonc.ToJSON(data)

	var cfg Config
	if err := json.Unmarshal(stripped, &cfg); err != nil {
		return nil, coreerrors.ConfigParsing("", err)
	}
	cfg.SetRawJSON(stripped)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(stripped, &raw); err == nil {
		unknown := make(map[string]json.RawMessage)
		for k, v := range raw {
			if _, known := knownTopLevelKeys[k]; !known {
				unknown[k] = v
				slog.Debug("unknown top-level devcontainer key retained", "key", k)
			}
		}
		if len(unknown) > 0 {
			cfg.unknownKeys = unknown
		}
	}

	return &cfg, nil
}

// ParseFile reads path and parses it as a devcontainer config.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coreerrors.ConfigFileNotFound(path)
		}
		return nil, coreerrors.ConfigParsing(path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		if ce, ok := coreerrors.As(err); ok {
			ce.WithContext("path", path)
		}
		return nil, err
	}
	return cfg, nil
}
