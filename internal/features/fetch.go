package features

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/oci"
)

const metadataFilename = "devcontainer-feature.json"

// Fetcher materializes a feature's devcontainer-feature.json and install
// files onto local disk and reports the digest to record in the lockfile
// (empty for local/http features, which carry no OCI integrity digest).
type Fetcher interface {
	Fetch(ctx context.Context, ref *FeatureRef) (path string, digest string, err error)
}

// OCIFetcher resolves "ghcr.io/..."-style references via an OCI registry.
type OCIFetcher struct {
	Client *oci.Client
}

func (f *OCIFetcher) Fetch(ctx context.Context, ref *FeatureRef) (string, string, error) {
	resolved, err := f.Client.Fetch(ctx, ref.String())
	if err != nil {
		return "", "", err
	}
	return resolved.Path, resolved.Digest, nil
}

// LocalFetcher resolves "./path"-style references relative to configDir.
type LocalFetcher struct {
	ConfigDir string
}

func (f *LocalFetcher) Fetch(_ context.Context, ref *FeatureRef) (string, string, error) {
	path := ref.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.ConfigDir, path)
	}
	if _, err := os.Stat(filepath.Join(path, metadataFilename)); err != nil {
		return "", "", coreerrors.FeatureManifestFetch(ref.Raw, err)
	}
	return path, "", nil
}

// HTTPFetcher downloads the body at a direct https:// URL into a cacheDir
// folder named by a hash of the URL and stores it as the feature's
// devcontainer-feature.json; the body is not unpacked as an archive.
type HTTPFetcher struct {
	CacheDir string
	Client   *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref *FeatureRef) (string, string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.Path, nil)
	if err != nil {
		return "", "", coreerrors.FeatureManifestFetch(ref.Raw, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", coreerrors.FeatureManifestFetch(ref.Raw, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", coreerrors.FeatureManifestFetch(ref.Raw, fmt.Errorf("http status %d", resp.StatusCode))
	}

	dest := filepath.Join(f.CacheDir, "http-features", httpCacheKey(ref.Raw))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", "", coreerrors.Internal("failed to create http feature cache dir", err)
	}
	metaPath := filepath.Join(dest, metadataFilename)
	out, err := os.Create(metaPath)
	if err != nil {
		return "", "", coreerrors.Internal("failed to write fetched feature metadata", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", "", coreerrors.FeatureManifestFetch(ref.Raw, err)
	}
	return dest, "", nil
}

func httpCacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum)
}

// FetcherFor selects the Fetcher implementation for ref's type.
func FetcherFor(ref *FeatureRef, ociClient *oci.Client, configDir, cacheDir string) Fetcher {
	switch ref.Type {
	case RefLocal:
		return &LocalFetcher{ConfigDir: configDir}
	case RefHTTP:
		return &HTTPFetcher{CacheDir: cacheDir}
	default:
		return &OCIFetcher{Client: ociClient}
	}
}

// loadMetadata reads and parses devcontainer-feature.json from a feature's
// resolved directory.
func loadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFilename))
	if err != nil {
		return nil, coreerrors.Internal("failed to read devcontainer-feature.json", err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, coreerrors.ConfigParsing(filepath.Join(dir, metadataFilename), err)
	}
	return &md, nil
}
