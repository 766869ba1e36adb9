package config

import (
	"bytes"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// schemaDoc is a deliberately small JSON Schema covering the fields this
// package actually type-checks structurally (see types.go); it is not a
// full mirror of the upstream devcontainer.json schema, just enough to
// catch the shape mistakes a hand-written config commonly makes (wrong
// type for a well-known field) before the looser json.Unmarshal pass runs.
const schemaDoc = `{
  "$id": "https://deacon.dev/schemas/devcontainer.json",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "image": {"type": "string"},
    "workspaceFolder": {"type": "string"},
    "workspaceMount": {"type": "string"},
    "remoteUser": {"type": "string"},
    "containerUser": {"type": "string"},
    "containerEnv": {"type": "object", "additionalProperties": {"type": "string"}},
    "features": {"type": "object"},
    "mounts": {"type": "array"},
    "runArgs": {"type": "array", "items": {"type": "string"}},
    "forwardPorts": {"type": "array"},
    "capAdd": {"type": "array", "items": {"type": "string"}},
    "securityOpt": {"type": "array", "items": {"type": "string"}}
  }
}`

// ValidateSchema runs raw (already JSONC-stripped) config bytes through a
// JSON Schema compiler, independent of the looser struct-based Parse above.
// Callers that want stricter diagnostics (e.g. "workspaceFolder must be a
// string", reported before any Go-type coercion happens) call this in
// addition to Parse.
func ValidateSchema(strippedJSON []byte) error {
	schema, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaDoc))
	if err != nil {
		return coreerrors.Internal("failed to unmarshal embedded devcontainer schema", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("devcontainer.json", schema); err != nil {
		return coreerrors.Internal("failed to register embedded devcontainer schema", err)
	}
	sch, err := c.Compile("devcontainer.json")
	if err != nil {
		return coreerrors.Internal("failed to compile embedded devcontainer schema", err)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(strippedJSON))
	if err != nil {
		return coreerrors.ConfigParsing("", err)
	}

	if err := sch.Validate(instance); err != nil {
		return coreerrors.ConfigValidation(err.Error())
	}
	return nil
}
