// Package oci fetches feature artifacts from OCI registries and extracts
// their layer contents into a local cache directory, grounded on oras-go.
package oci

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/codeclysm/extract/v4"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry/remote"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
)

// FeatureManifestMediaType is the media type of a devcontainer feature's OCI manifest.
const FeatureManifestMediaType = "application/vnd.oci.image.manifest.v1+json"

// FeatureLayerMediaType is the media type of a devcontainer feature's tarball layer.
const FeatureLayerMediaType = "application/vnd.devcontainers.layer.v1+tar"

// Resolved describes a fetched feature artifact.
type Resolved struct {
	Reference  string
	Digest     string // manifest digest, authoritative for lockfile integrity
	Path       string // local directory the feature's files were extracted into
	FromCache  bool
	ManifestSHA256 string // sha256 of the raw manifest bytes, for 4.G lockfile integrity
}

// Client fetches feature artifacts from OCI registries, caching extracted
// contents under cacheDir keyed by reference.
type Client struct {
	cacheDir string
}

func NewClient(cacheDir string) *Client {
	return &Client{cacheDir: cacheDir}
}

// Fetch resolves ref to a manifest digest and extracts its feature layer
// into the cache, reusing an existing extraction when the digest matches.
func (c *Client) Fetch(ctx context.Context, ref string) (*Resolved, error) {
	repo, err := remote.NewRepository(ref)
	if err != nil {
		return nil, coreerrors.FeatureManifestFetch(ref, err)
	}

	desc, err := repo.Resolve(ctx, repo.Reference.Reference)
	if err != nil {
		return nil, coreerrors.FeatureManifestFetch(ref, err)
	}
	if desc.MediaType != FeatureManifestMediaType {
		return nil, coreerrors.FeatureManifestFetch(ref, fmt.Errorf("unsupported manifest media type %q", desc.MediaType))
	}

	cacheKey := c.cachePathFor(ref, string(desc.Digest))
	if _, err := os.Stat(cacheKey); err == nil {
		return &Resolved{Reference: ref, Digest: string(desc.Digest), Path: cacheKey, FromCache: true}, nil
	}

	_, manifestBytes, err := oras.FetchBytes(ctx, repo, ref, oras.DefaultFetchBytesOptions)
	if err != nil {
		return nil, coreerrors.FeatureManifestFetch(ref, err)
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, coreerrors.FeatureManifestFetch(ref, err)
	}

	if err := os.MkdirAll(cacheKey, fs.ModeDir|0o755); err != nil {
		return nil, coreerrors.Internal("failed to create feature cache directory", err)
	}

	extracted := false
	for _, layer := range manifest.Layers {
		if layer.MediaType != FeatureLayerMediaType {
			continue
		}
		layerBytes, err := content.FetchAll(ctx, repo, layer)
		if err != nil {
			return nil, coreerrors.FeatureManifestFetch(ref, err)
		}
		if err := extract.Tar(ctx, bytes.NewBuffer(layerBytes), cacheKey, nil); err != nil {
			return nil, coreerrors.FeatureManifestFetch(ref, err)
		}
		extracted = true
		break
	}
	if !extracted {
		return nil, coreerrors.FeatureManifestFetch(ref, fmt.Errorf("manifest has no %s layer", FeatureLayerMediaType))
	}

	sum := sha256.Sum256(manifestBytes)
	return &Resolved{
		Reference:      ref,
		Digest:         string(desc.Digest),
		Path:           cacheKey,
		ManifestSHA256: hex.EncodeToString(sum[:]),
	}, nil
}

func (c *Client) cachePathFor(ref, digest string) string {
	h := sha256.Sum256([]byte(ref + "@" + digest))
	return filepath.Join(c.cacheDir, "features", hex.EncodeToString(h[:]))
}

// ListTags returns every tag published for repoRef (an OCI reference with no
// tag/digest qualifier, e.g. "ghcr.io/devcontainers/features/go"), sorted by
// the registry's own listing order.
func (c *Client) ListTags(ctx context.Context, repoRef string) ([]string, error) {
	repo, err := remote.NewRepository(repoRef)
	if err != nil {
		return nil, coreerrors.FeatureManifestFetch(repoRef, err)
	}

	var tags []string
	if err := repo.Tags(ctx, "", func(page []string) error {
		tags = append(tags, page...)
		return nil
	}); err != nil {
		return nil, coreerrors.FeatureManifestFetch(repoRef, err)
	}
	return tags, nil
}
