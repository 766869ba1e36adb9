// Package errors provides the structured error taxonomy shared across the
// core: every failure that crosses a component boundary is a *CoreError* so
// callers can branch on Category/Code instead of parsing strings.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups related error codes.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryFeature   Category = "feature"
	CategoryDocker    Category = "docker"
	CategoryLifecycle Category = "lifecycle"
	CategoryProbe     Category = "probe"
	CategoryCancelled Category = "cancelled"
	CategoryInternal  Category = "internal"
)

const (
	CodeConfigFileNotFound = "CONFIG_FILE_NOT_FOUND"
	CodeConfigParsing      = "CONFIG_PARSING"
	CodeConfigValidation   = "CONFIG_VALIDATION"

	CodeFeatureManifestFetch     = "FEATURE_MANIFEST_FETCH"
	CodeFeatureIntegrityMismatch = "FEATURE_INTEGRITY_MISMATCH"
	CodeFeatureCyclicDependency  = "FEATURE_CYCLIC_DEPENDENCY"
	CodeFeatureLockMismatch      = "FEATURE_LOCK_MISMATCH"
	CodeFeatureDisallowedFeature = "FEATURE_DISALLOWED_FEATURE"

	CodeDockerNotInstalled      = "DOCKER_NOT_INSTALLED"
	CodeDockerDaemonUnreachable = "DOCKER_DAEMON_UNREACHABLE"
	CodeDockerCliError          = "DOCKER_CLI_ERROR"

	CodeLifecycleCommandFailed = "LIFECYCLE_COMMAND_FAILED"

	CodeProbeShellFailed = "PROBE_SHELL_FAILED"

	CodeCancelled = "CANCELLED"

	CodeInternal = "INTERNAL"
)

// CoreError is the structured error type produced by every core component.
type CoreError struct {
	Category Category
	Code     string
	Message  string
	Cause    error
	Hint     string
	DocURL   string
	Context  map[string]string
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("[%s/%s] %s", e.Category, e.Code, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// UserFriendly renders a multi-line, human-readable form with hint/doc/context.
func (e *CoreError) UserFriendly() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", e.Cause.Error()))
	}
	if e.Hint != "" {
		sb.WriteString(fmt.Sprintf("\nHint: %s\n", e.Hint))
	}
	if e.DocURL != "" {
		sb.WriteString(fmt.Sprintf("\nDocumentation: %s\n", e.DocURL))
	}
	if len(e.Context) > 0 {
		sb.WriteString("\nContext:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
		}
	}
	return sb.String()
}

func (e *CoreError) WithCause(cause error) *CoreError { e.Cause = cause; return e }
func (e *CoreError) WithHint(hint string) *CoreError  { e.Hint = hint; return e }
func (e *CoreError) WithDocURL(url string) *CoreError { e.DocURL = url; return e }
func (e *CoreError) WithContext(key, value string) *CoreError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// Clone returns a copy safe to mutate independently of a shared instance.
func (e *CoreError) Clone() *CoreError {
	clone := &CoreError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Cause:    e.Cause,
		Hint:     e.Hint,
		DocURL:   e.DocURL,
		Context:  make(map[string]string, len(e.Context)),
	}
	for k, v := range e.Context {
		clone.Context[k] = v
	}
	return clone
}

func New(category Category, code, message string) *CoreError {
	return &CoreError{Category: category, Code: code, Message: message, Context: make(map[string]string)}
}

func Newf(category Category, code, format string, args ...interface{}) *CoreError {
	return New(category, code, fmt.Sprintf(format, args...))
}

func Wrap(err error, category Category, code, message string) *CoreError {
	e := New(category, code, message)
	e.Cause = err
	return e
}

func Wrapf(err error, category Category, code, format string, args ...interface{}) *CoreError {
	return Wrap(err, category, code, fmt.Sprintf(format, args...))
}

// Is reports whether err is a *CoreError carrying the given code.
func Is(err error, code string) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func GetCategory(err error) Category {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

func GetCode(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func As(err error) (*CoreError, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// --- Config ---

func ConfigFileNotFound(path string) *CoreError {
	return New(CategoryConfig, CodeConfigFileNotFound, "devcontainer config not found").
		WithContext("path", path).
		WithHint("create .devcontainer/devcontainer.json, .devcontainer.json, or .devcontainer/devcontainer.jsonc").
		WithDocURL("https://containers.dev/implementors/json_reference/")
}

func ConfigParsing(path string, cause error) *CoreError {
	return Wrap(cause, CategoryConfig, CodeConfigParsing, "failed to parse devcontainer config").
		WithContext("path", path)
}

func ConfigValidation(message string) *CoreError {
	return New(CategoryConfig, CodeConfigValidation, message).
		WithHint("review the devcontainer.json specification").
		WithDocURL("https://containers.dev/implementors/json_reference/")
}

// --- Feature ---

func FeatureManifestFetch(ref string, cause error) *CoreError {
	return Wrap(cause, CategoryFeature, CodeFeatureManifestFetch, fmt.Sprintf("failed to fetch manifest for %s", ref)).
		WithContext("reference", ref)
}

func FeatureIntegrityMismatch(id, expected, actual string) *CoreError {
	return Newf(CategoryFeature, CodeFeatureIntegrityMismatch, "integrity mismatch for feature %s", id).
		WithContext("feature", id).
		WithContext("expected", expected).
		WithContext("actual", actual)
}

func FeatureCyclicDependency(cycle []string) *CoreError {
	return New(CategoryFeature, CodeFeatureCyclicDependency, "circular dependency detected in feature graph").
		WithContext("cycle", strings.Join(cycle, " -> "))
}

func FeatureLockMismatch(id, reason string) *CoreError {
	return Newf(CategoryFeature, CodeFeatureLockMismatch, "lockfile mismatch for feature %s: %s", id, reason).
		WithContext("feature", id)
}

func FeatureDisallowed(id string) *CoreError {
	return Newf(CategoryFeature, CodeFeatureDisallowedFeature, "feature %s is disallowed", id).
		WithContext("feature", id)
}

// --- Docker ---

func DockerNotInstalled(cause error) *CoreError {
	return Wrap(cause, CategoryDocker, CodeDockerNotInstalled, "container runtime is not installed").
		WithHint("install Docker or Podman and ensure it is on PATH")
}

func DockerDaemonUnreachable(cause error) *CoreError {
	return Wrap(cause, CategoryDocker, CodeDockerDaemonUnreachable, "container runtime daemon is unreachable").
		WithHint("start the daemon or check --runtime / socket permissions")
}

func DockerCliError(operation string, cause error) *CoreError {
	return Wrap(cause, CategoryDocker, CodeDockerCliError, fmt.Sprintf("runtime error during %s", operation)).
		WithContext("operation", operation)
}

// --- Lifecycle ---

// LifecycleCommandFailed reports a failing lifecycle command with its
// source attribution (Config or Feature(<id>)), phase, and exit status.
func LifecycleCommandFailed(source, phase string, exitCode int, cause error) *CoreError {
	return Wrap(cause, CategoryLifecycle, CodeLifecycleCommandFailed, fmt.Sprintf("%s command in phase %s failed (exit %d)", source, phase, exitCode)).
		WithContext("source", source).
		WithContext("phase", phase).
		WithContext("exitCode", fmt.Sprintf("%d", exitCode))
}

// --- Probe ---

func ProbeShellFailed(mode string, cause error) *CoreError {
	return Wrap(cause, CategoryProbe, CodeProbeShellFailed, fmt.Sprintf("environment probe shell failed (mode=%s)", mode)).
		WithContext("mode", mode)
}

// --- Cancelled / Internal ---

func Cancelled(reason string) *CoreError {
	return New(CategoryCancelled, CodeCancelled, reason)
}

func Internal(message string, cause error) *CoreError {
	return Wrap(cause, CategoryInternal, CodeInternal, message).
		WithHint("this is an internal error; please file a report")
}
