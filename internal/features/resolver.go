package features

import (
	"context"
	"encoding/json"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/config"
	"github.com/deacon-dev/deacon/internal/oci"
)

// LockProvider looks up the digest a lockfile recorded for a feature's
// canonical id, used to enforce reproducible installs in frozen mode.
type LockProvider interface {
	Get(canonicalID string) (digest string, ok bool)
}

// Options configures a single Resolve call.
type Options struct {
	ConfigDir       string
	CacheDir        string
	OCIClient       *oci.Client
	Frozen          bool
	Lock            LockProvider // nil if no lockfile exists yet
	Disallowed      map[string]bool
	SkipAutoMapping bool
}

// Plan is the outcome of resolving a devcontainer's declared feature set.
type Plan struct {
	Features         []*Feature // in install order
	EntrypointScript string     // "" if no feature declares an entrypoint
}

// Resolve normalizes every declared feature reference, fetches its metadata,
// follows dependsOn/installsAfter into a dependency graph, and returns a
// concrete install plan.
func Resolve(ctx context.Context, declared *config.OrderedMap[json.RawMessage], opts Options) (*Plan, error) {
	g := newGraph()
	queue := make([]*Feature, 0)

	if declared != nil {
		for _, id := range declared.Keys() {
			raw, _ := declared.Get(id)
			ref, err := ParseFeatureRef(id)
			if err != nil {
				return nil, coreerrors.Internal("invalid feature reference", err)
			}
			if opts.Disallowed[ref.CanonicalID()] {
				return nil, coreerrors.FeatureDisallowed(ref.CanonicalID())
			}
			options, err := parseOptions(raw)
			if err != nil {
				return nil, coreerrors.ConfigParsing(id, err)
			}
			f := &Feature{Ref: ref, Options: options, UserDeclared: true}
			if err := g.addNode(f); err != nil {
				return nil, err
			}
			queue = append(queue, f)
		}
	}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		if err := resolveOne(ctx, f, opts); err != nil {
			return nil, err
		}

		for depID, depOptions := range f.Metadata.DependsOn {
			depRef, err := ParseFeatureRef(depID)
			if err != nil {
				return nil, coreerrors.Internal("invalid dependsOn reference", err)
			}
			canonical := depRef.CanonicalID()

			if existing, ok := g.nodes[canonical]; ok {
				if err := g.addDependency(f.Ref.CanonicalID(), canonical); err != nil {
					return nil, err
				}
				_ = existing
				continue
			}
			if opts.SkipAutoMapping {
				continue
			}
			if opts.Disallowed[canonical] {
				return nil, coreerrors.FeatureDisallowed(canonical)
			}

			dep := &Feature{Ref: depRef, Options: cloneOptions(depOptions), UserDeclared: false}
			if err := g.addNode(dep); err != nil {
				return nil, err
			}
			if err := g.addDependency(f.Ref.CanonicalID(), canonical); err != nil {
				return nil, err
			}
			queue = append(queue, dep)
		}
	}

	// installsAfter only applies among features already in the graph; a
	// second pass is required since dependency-introduced nodes may have
	// arrived after an earlier feature's installsAfter was first examined.
	for id, f := range g.nodes {
		for _, after := range f.Metadata.InstallsAfter {
			afterRef, err := ParseFeatureRef(after)
			if err != nil {
				continue
			}
			if err := g.addSoftOrdering(id, afterRef.CanonicalID()); err != nil {
				return nil, err
			}
		}
	}

	ordered, err := g.installOrder()
	if err != nil {
		return nil, err
	}

	return &Plan{
		Features:         ordered,
		EntrypointScript: GenerateEntrypoint(ordered),
	}, nil
}

// resolveOne picks the version to fetch (digest-in-ref, else lockfile digest
// in frozen mode, else registry-resolved tag/latest), fetches the feature,
// and enforces lockfile integrity when frozen.
func resolveOne(ctx context.Context, f *Feature, opts Options) error {
	ref := f.Ref

	if ref.Type == RefOCI && ref.Digest == "" && opts.Frozen && opts.Lock != nil {
		if digest, ok := opts.Lock.Get(ref.CanonicalID()); ok {
			pinned := *ref
			pinned.Digest = digest
			pinned.Tag = ""
			ref = &pinned
			f.Ref = ref
		} else {
			return coreerrors.FeatureLockMismatch(ref.CanonicalID(), "no lockfile entry for frozen install")
		}
	}

	fetcher := FetcherFor(ref, opts.OCIClient, opts.ConfigDir, opts.CacheDir)
	path, digest, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		return err
	}

	if opts.Frozen && opts.Lock != nil && ref.Type == RefOCI {
		if recorded, ok := opts.Lock.Get(ref.CanonicalID()); ok && recorded != digest {
			return coreerrors.FeatureLockMismatch(ref.CanonicalID(), "resolved digest does not match lockfile")
		}
	}

	md, err := loadMetadata(path)
	if err != nil {
		return err
	}
	if md.DependsOn == nil {
		md.DependsOn = map[string]map[string]interface{}{}
	}

	f.Path = path
	f.Digest = digest
	f.Metadata = md
	return nil
}

func parseOptions(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return t, nil
	case bool, string:
		// shorthand forms, e.g. {"feature": true} or {"feature": "version"},
		// carry no named options.
		return map[string]interface{}{}, nil
	default:
		return map[string]interface{}{}, nil
	}
}

func cloneOptions(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
