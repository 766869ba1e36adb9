package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreError_Error(t *testing.T) {
	err := New(CategoryConfig, CodeConfigFileNotFound, "devcontainer config not found")
	assert.Equal(t, "[config/CONFIG_FILE_NOT_FOUND] devcontainer config not found", err.Error())
}

func TestCoreError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CategoryDocker, CodeDockerCliError, "runtime error")
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, err))
}

func TestCoreError_UserFriendly(t *testing.T) {
	err := New(CategoryConfig, CodeConfigFileNotFound, "devcontainer config not found").
		WithHint("create a config file").
		WithContext("path", "/project/.devcontainer")

	friendly := err.UserFriendly()
	assert.Contains(t, friendly, "devcontainer config not found")
	assert.Contains(t, friendly, "create a config file")
	assert.Contains(t, friendly, "path: /project/.devcontainer")
}

func TestCoreError_Clone(t *testing.T) {
	orig := ConfigFileNotFound("/a/b")
	clone := orig.Clone()
	clone.WithContext("extra", "x")
	_, origHasExtra := orig.Context["extra"]
	assert.False(t, origHasExtra)
	assert.Equal(t, "x", clone.Context["extra"])
}

func TestIsGetCategoryGetCode(t *testing.T) {
	err := FeatureCyclicDependency([]string{"a", "b", "a"})
	assert.True(t, Is(err, CodeFeatureCyclicDependency))
	assert.Equal(t, CategoryFeature, GetCategory(err))
	assert.Equal(t, CodeFeatureCyclicDependency, GetCode(err))

	wrapped := Internal("boom", err)
	ce, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CategoryInternal, ce.Category)
}

func TestLifecycleCommandFailed(t *testing.T) {
	cause := errors.New("exit status 1")
	err := LifecycleCommandFailed("Feature(node)", "postCreate", 1, cause)
	assert.Equal(t, "postCreate", err.Context["phase"])
	assert.Equal(t, "Feature(node)", err.Context["source"])
	assert.Equal(t, "1", err.Context["exitCode"])
}
