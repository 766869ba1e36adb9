package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

func TestConfig_Validate_RejectsBlankFeatureKey(t *testing.T) {
	c := &Config{Features: NewOrderedMap[json.RawMessage]()}
	c.Features.Set("", json.RawMessage(`{}`))

	err := c.Validate()
	require.Error(t, err)
	assert.Equal(t, coreerrors.CodeConfigValidation, coreerrors.GetCode(err))
}

func TestConfig_Validate_RejectsComposePlanWithNoFiles(t *testing.T) {
	c := &Config{DockerComposeFile: []interface{}{}}
	err := c.Validate()
	require.Error(t, err)
}

func TestConfig_Validate_AcceptsWellFormedConfig(t *testing.T) {
	c := &Config{Image: "ubuntu:24.04"}
	assert.NoError(t, c.Validate())
}
