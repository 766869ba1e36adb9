package cli

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/features"
	"github.com/deacon-dev/deacon/internal/oci"
	"github.com/deacon-dev/deacon/internal/output"
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List declared features whose pinned tag is not the latest one published",
	RunE:  runOutdated,
}

type outdatedFeature struct {
	ID          string `json:"id"`
	Current     string `json:"current"`
	Latest      string `json:"latest,omitempty"`
	UpToDate    bool   `json:"upToDate"`
}

func runOutdated(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := outdated(ctx)
	if err != nil {
		output.PrintError(err)
		return err
	}

	if output.IsJSON() {
		return output.JSON(struct {
			Features []outdatedFeature `json:"features"`
		}{result})
	}
	for _, f := range result {
		if f.UpToDate {
			output.Print("%-40s up to date (%s)", f.ID, f.Current)
		} else {
			output.Print("%-40s %s -> %s", f.ID, f.Current, f.Latest)
		}
	}
	return nil
}

func outdated(ctx context.Context) ([]outdatedFeature, error) {
	resolution, err := resolveWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	cfg := resolution.Config
	if cfg.Features == nil {
		return nil, nil
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	client := oci.NewClient(filepath.Join(cacheDir, "deacon"))

	var result []outdatedFeature
	for _, id := range cfg.Features.Keys() {
		ref, err := features.ParseFeatureRef(id)
		if err != nil {
			return nil, err
		}
		if ref.Type != features.RefOCI || ref.Digest != "" {
			// Local/HTTP features and digest-pinned refs have no registry
			// tag stream to compare against.
			continue
		}

		tags, err := client.ListTags(ctx, ref.Registry+"/"+ref.Path)
		if err != nil {
			return nil, err
		}
		if len(tags) == 0 {
			continue
		}
		sort.Strings(tags)
		latest := tags[len(tags)-1]

		current := ref.Tag
		if current == "" {
			current = "latest"
		}

		result = append(result, outdatedFeature{
			ID:       ref.CanonicalID(),
			Current:  current,
			Latest:   latest,
			UpToDate: current == latest || current == "latest",
		})
	}
	return result, nil
}
