// Package merge combines a base config, optional image-label metadata, and
// an optional override config into one effective config, then runs variable
// substitution on the result exactly once.
package merge

import (
	"encoding/json"
	"sort"
	"strings"

	"dario.cat/mergo"

	"github.com/deacon-dev/deacon/internal/config"
	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/substitute"
)

const remoteEnvLabelPrefix = "deacon.remoteEnv."

// Input is everything Merge needs beyond the base config.
type Input struct {
	Override      *config.Config    // optional; nil if no override was supplied
	ImageLabels   map[string]string // raw docker image labels, incl. "devcontainer.metadata" and "deacon.remoteEnv.<NAME>"
	WorkspacePath string
	SubstituteCtx substitute.Context
}

// Merge applies precedence base -> image-label metadata -> override ->
// deacon.remoteEnv.<NAME> labels, then substitutes the result once.
func Merge(base *config.Config, in Input) (*config.Config, *substitute.Report, error) {
	if base == nil {
		return nil, nil, coreerrors.Internal("merge: base config must not be nil", nil)
	}

	effective := cloneConfig(base)

	if metaConfigs, err := metadataLayers(in.ImageLabels); err != nil {
		return nil, nil, err
	} else {
		for _, layer := range metaConfigs {
			effective = mergeLayer(effective, layer)
		}
	}

	if in.Override != nil {
		effective = mergeLayer(effective, in.Override)
	}

	applyRemoteEnvLabels(effective, in.ImageLabels)

	substCtx := in.SubstituteCtx
	if substCtx.LocalWorkspaceFolder == "" {
		substCtx.LocalWorkspaceFolder = in.WorkspacePath
	}
	return substitute.Apply(effective, substCtx)
}

// cloneConfig round-trips through JSON to get an independent deep copy
// without hand-writing a field-by-field copier for every Config field.
func cloneConfig(c *config.Config) *config.Config {
	data, err := json.Marshal(c)
	if err != nil {
		return c
	}
	clone, err := config.Parse(data)
	if err != nil {
		return c
	}
	return clone
}

// metadataLayers parses the base image's "devcontainer.metadata" label,
// which may be a single config-shaped object or an array of them (one per
// layer that contributed to the image), oldest first.
func metadataLayers(imageLabels map[string]string) ([]*config.Config, error) {
	raw, ok := imageLabels["devcontainer.metadata"]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var asArray []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &asArray); err == nil {
		layers := make([]*config.Config, 0, len(asArray))
		for _, entry := range asArray {
			cfg, err := config.Parse(entry)
			if err != nil {
				return nil, coreerrors.ConfigParsing("devcontainer.metadata", err)
			}
			layers = append(layers, cfg)
		}
		return layers, nil
	}

	cfg, err := config.Parse([]byte(raw))
	if err != nil {
		return nil, coreerrors.ConfigParsing("devcontainer.metadata", err)
	}
	return []*config.Config{cfg}, nil
}

// mergeLayer merges higher into base and returns a new merged Config; base
// and higher are both left unmodified.
func mergeLayer(base, higher *config.Config) *config.Config {
	out := cloneConfig(base)

	out.Name = mergeString(out.Name, higher.Name)
	out.Image = mergeString(out.Image, higher.Image)
	out.Build = mergeBuild(out.Build, higher.Build)

	if higher.DockerComposeFile != nil {
		out.DockerComposeFile = higher.DockerComposeFile
	}
	out.Service = mergeString(out.Service, higher.Service)
	out.RunServices = mergeStringSlice(out.RunServices, higher.RunServices)

	out.WorkspaceFolder = mergeString(out.WorkspaceFolder, higher.WorkspaceFolder)
	out.WorkspaceMount = mergeString(out.WorkspaceMount, higher.WorkspaceMount)
	out.RemoteUser = mergeString(out.RemoteUser, higher.RemoteUser)
	out.ContainerUser = mergeString(out.ContainerUser, higher.ContainerUser)
	out.UpdateRemoteUserUID = mergeBoolPtr(out.UpdateRemoteUserUID, higher.UpdateRemoteUserUID)

	out.ContainerEnv = mergeStringMap(out.ContainerEnv, higher.ContainerEnv)
	out.RemoteEnv = mergeOptionalStringMap(out.RemoteEnv, higher.RemoteEnv)
	out.Features = mergeFeatures(out.Features, higher.Features)
	if len(higher.OverrideFeatureInstallOrder) > 0 {
		out.OverrideFeatureInstallOrder = higher.OverrideFeatureInstallOrder
	}

	out.ForwardPorts = append(append([]interface{}{}, out.ForwardPorts...), higher.ForwardPorts...)
	if higher.AppPort != nil {
		out.AppPort = higher.AppPort
	}
	out.PortsAttributes = mergeInterfaceMap(out.PortsAttributes, higher.PortsAttributes)
	if higher.OtherPortsAttributes != nil {
		out.OtherPortsAttributes = higher.OtherPortsAttributes
	}

	out.Mounts = append(append([]config.Mount{}, out.Mounts...), higher.Mounts...)
	out.RunArgs = mergeStringSlice(out.RunArgs, higher.RunArgs)

	out.InitializeCommand = mergeCommand(out.InitializeCommand, higher.InitializeCommand)
	out.OnCreateCommand = mergeCommand(out.OnCreateCommand, higher.OnCreateCommand)
	out.UpdateContentCommand = mergeCommand(out.UpdateContentCommand, higher.UpdateContentCommand)
	out.PostCreateCommand = mergeCommand(out.PostCreateCommand, higher.PostCreateCommand)
	out.PostStartCommand = mergeCommand(out.PostStartCommand, higher.PostStartCommand)
	out.PostAttachCommand = mergeCommand(out.PostAttachCommand, higher.PostAttachCommand)
	out.WaitFor = mergeString(out.WaitFor, higher.WaitFor)

	out.UserEnvProbe = mergeString(out.UserEnvProbe, higher.UserEnvProbe)

	out.OverrideCommand = mergeBoolPtr(out.OverrideCommand, higher.OverrideCommand)
	out.ShutdownAction = mergeString(out.ShutdownAction, higher.ShutdownAction) // "replaces" per spec, same as any scalar
	out.Init = mergeBoolPtr(out.Init, higher.Init)
	out.Privileged = mergeBoolPtr(out.Privileged, higher.Privileged)
	out.CapAdd = mergeStringSlice(out.CapAdd, higher.CapAdd)
	out.SecurityOpt = mergeStringSlice(out.SecurityOpt, higher.SecurityOpt)

	if higher.HostRequirements != nil {
		out.HostRequirements = higher.HostRequirements
	}

	out.Customizations = mergeInterfaceMap(out.Customizations, higher.Customizations)

	return out
}

func mergeString(base, higher string) string {
	if higher != "" {
		return higher
	}
	return base
}

func mergeBoolPtr(base, higher *bool) *bool {
	if higher != nil {
		return higher
	}
	return base
}

func mergeStringSlice(base, higher []string) []string {
	if len(higher) == 0 {
		return base
	}
	return append(append([]string{}, base...), higher...)
}

func mergeBuild(base, higher *config.BuildConfig) *config.BuildConfig {
	if higher == nil {
		return base
	}
	if base == nil {
		return higher
	}
	out := *base
	out.Dockerfile = mergeString(out.Dockerfile, higher.Dockerfile)
	out.Context = mergeString(out.Context, higher.Context)
	out.Target = mergeString(out.Target, higher.Target)
	out.CacheFrom = mergeStringSlice(out.CacheFrom, higher.CacheFrom)
	out.Options = mergeStringSlice(out.Options, higher.Options)
	if out.Args == nil {
		out.Args = map[string]string{}
	}
	for k, v := range higher.Args {
		out.Args[k] = v
	}
	return &out
}

// mergeStringMap merges by key, preserving base's declared order and
// appending any keys only higher introduces, in higher's order.
func mergeStringMap(base, higher *config.OrderedMap[string]) *config.OrderedMap[string] {
	if higher == nil {
		return base
	}
	out := base
	if out == nil {
		out = config.NewOrderedMap[string]()
	} else {
		out = out.Clone()
	}
	for _, k := range higher.Keys() {
		v, _ := higher.Get(k)
		out.Set(k, v)
	}
	return out
}

// mergeOptionalStringMap merges remote_env, where nil means "inherit from
// probe/host": a key set to nil in higher does not erase a non-nil value
// already present from a lower layer.
func mergeOptionalStringMap(base, higher *config.OrderedMap[*string]) *config.OrderedMap[*string] {
	if higher == nil {
		return base
	}
	out := base
	if out == nil {
		out = config.NewOrderedMap[*string]()
	} else {
		out = out.Clone()
	}
	for _, k := range higher.Keys() {
		v, _ := higher.Get(k)
		if v == nil {
			if existing, ok := out.Get(k); ok && existing != nil {
				continue
			}
		}
		out.Set(k, v)
	}
	return out
}

// mergeFeatures unions feature declarations by id; a feature id declared in
// both layers has its options object merged (higher wins per option key).
func mergeFeatures(base, higher *config.OrderedMap[json.RawMessage]) *config.OrderedMap[json.RawMessage] {
	if higher == nil {
		return base
	}
	out := base
	if out == nil {
		out = config.NewOrderedMap[json.RawMessage]()
	} else {
		out = out.Clone()
	}
	for _, id := range higher.Keys() {
		higherOpts, _ := higher.Get(id)
		if baseOpts, exists := out.Get(id); exists {
			merged, err := mergeFeatureOptions(baseOpts, higherOpts)
			if err == nil {
				out.Set(id, merged)
				continue
			}
		}
		out.Set(id, higherOpts)
	}
	return out
}

func mergeFeatureOptions(base, higher json.RawMessage) (json.RawMessage, error) {
	var baseMap, higherMap map[string]interface{}
	if err := json.Unmarshal(base, &baseMap); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(higher, &higherMap); err != nil {
		return nil, err
	}
	if err := mergo.Merge(&baseMap, higherMap, mergo.WithOverride); err != nil {
		return nil, err
	}
	return json.Marshal(baseMap)
}

// mergeInterfaceMap deep-merges two arbitrary JSON-object-shaped maps
// (portsAttributes, customizations), higher winning on conflicting keys.
func mergeInterfaceMap(base, higher map[string]interface{}) map[string]interface{} {
	if higher == nil {
		return base
	}
	out := map[string]interface{}{}
	for k, v := range base {
		out[k] = v
	}
	if err := mergo.Merge(&out, higher, mergo.WithOverride); err != nil {
		for k, v := range higher { // fall back to shallow replace on merge failure
			out[k] = v
		}
	}
	return out
}

func mergeCommand(base, higher config.LifecycleCommand) config.LifecycleCommand {
	if !higher.IsEmpty() {
		return higher
	}
	return base
}

// applyRemoteEnvLabels injects deacon.remoteEnv.<NAME> image labels into
// cfg.RemoteEnv; these sit above everything else in precedence, including
// the config-declared override.
func applyRemoteEnvLabels(cfg *config.Config, imageLabels map[string]string) {
	names := make([]string, 0)
	for key := range imageLabels {
		if strings.HasPrefix(key, remoteEnvLabelPrefix) {
			names = append(names, key)
		}
	}
	if len(names) == 0 {
		return
	}
	sort.Strings(names)

	if cfg.RemoteEnv == nil {
		cfg.RemoteEnv = config.NewOrderedMap[*string]()
	}
	for _, key := range names {
		name := strings.TrimPrefix(key, remoteEnvLabelPrefix)
		value := imageLabels[key]
		cfg.RemoteEnv.Set(name, &value)
	}
}
