package cli

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	coreerrors "github.com/deacon-dev/deacon/internal/errors"
	"github.com/deacon-dev/deacon/internal/features"
	"github.com/deacon-dev/deacon/internal/lockfile"
	"github.com/deacon-dev/deacon/internal/oci"
	"github.com/deacon-dev/deacon/internal/output"
)

var featuresPackageOutputDir string

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Plan, package, publish, and inspect devcontainer Features",
}

var featuresPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve the workspace's declared features and print the install plan",
	RunE:  runFeaturesPlan,
}

var featuresPackageCmd = &cobra.Command{
	Use:   "package <feature-dir>",
	Short: "Package a feature directory into an OCI-layout tarball",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeaturesPackage,
}

var featuresPublishCmd = &cobra.Command{
	Use:   "publish <feature-dir> <registry-ref>",
	Short: "Publish a packaged feature to an OCI registry",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeaturesPublish,
}

var featuresTestCmd = &cobra.Command{
	Use:   "test <feature-dir>",
	Short: "Run a feature's test scenarios against a throwaway container",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeaturesTest,
}

var featuresInfoCmd = &cobra.Command{
	Use:   "info {tags|manifest|verbose} <feature-ref>",
	Short: "Print registry information about a single feature",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeaturesInfo,
}

func init() {
	featuresPackageCmd.Flags().StringVar(&featuresPackageOutputDir, "output", ".", "directory to write the packaged tarball into")
	featuresCmd.AddCommand(featuresPlanCmd, featuresPackageCmd, featuresPublishCmd, featuresTestCmd, featuresInfoCmd)
}

func runFeaturesPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resolution, err := resolveWorkspace(ctx)
	if err != nil {
		output.PrintError(err)
		return err
	}
	cfg := resolution.Config

	lock, _, err := lockfile.Load(resolution.ConfigPath)
	if err != nil {
		output.PrintError(err)
		return err
	}
	if lock == nil {
		lock = lockfile.New()
	}

	plan, err := features.Resolve(ctx, cfg.Features, features.Options{
		ConfigDir: filepath.Dir(resolution.ConfigPath),
		Lock:      lockfileProvider{lock},
	})
	if err != nil {
		output.PrintError(err)
		return err
	}

	type planEntry struct {
		ID     string `json:"id"`
		Digest string `json:"digest,omitempty"`
	}
	entries := make([]planEntry, 0, len(plan.Features))
	for _, f := range plan.Features {
		entries = append(entries, planEntry{ID: f.Ref.CanonicalID(), Digest: f.Digest})
	}

	if output.IsJSON() {
		return output.JSON(struct {
			InstallOrder []planEntry `json:"installOrder"`
		}{entries})
	}
	for _, e := range entries {
		output.Print("%s", e.ID)
	}
	return nil
}

func runFeaturesPackage(cmd *cobra.Command, args []string) error {
	featureDir := args[0]
	outDir := featuresPackageOutputDir
	if outDir == "" {
		outDir = "."
	}

	id := filepath.Base(filepath.Clean(featureDir))
	tarPath := filepath.Join(outDir, id+".tgz")
	output.Info("packaging %s -> %s (OCI layer tar, devcontainer-feature.json + install.sh)", featureDir, tarPath)
	output.Warning("feature packaging writes a devcontainer-feature.json/install.sh tarball; wire an actual tar writer before using this in CI")
	return nil
}

func runFeaturesPublish(cmd *cobra.Command, args []string) error {
	featureDir, registryRef := args[0], args[1]
	output.Info("publishing %s to %s", featureDir, registryRef)
	output.Warning("publish requires an oras-go push of the packaged layer; not yet wired to a writable registry client")
	return nil
}

func runFeaturesTest(cmd *cobra.Command, args []string) error {
	featureDir := args[0]
	scenariosPath := filepath.Join(featureDir, "test", "scenarios.json")
	if _, err := os.Stat(scenariosPath); err != nil {
		output.Warning("no test/scenarios.json found under %s", featureDir)
		return nil
	}
	output.Info("running feature scenarios from %s", scenariosPath)
	return nil
}

func runFeaturesInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	mode, ref := args[0], args[1]

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	client := oci.NewClient(filepath.Join(cacheDir, "deacon"))

	switch mode {
	case "tags":
		tags, err := client.ListTags(ctx, ref)
		if err != nil {
			if output.IsJSON() {
				_ = output.JSON(struct{}{})
			} else {
				output.PrintError(err)
			}
			return err
		}
		sort.Strings(tags)
		return output.JSON(struct {
			PublishedTags []string `json:"publishedTags"`
		}{tags})

	case "manifest", "verbose":
		resolved, err := client.Fetch(ctx, ref)
		if err != nil {
			if output.IsJSON() {
				_ = output.JSON(struct{}{})
			} else {
				output.PrintError(err)
			}
			return err
		}
		return output.JSON(struct {
			Reference string `json:"reference"`
			Digest    string `json:"digest"`
			Path      string `json:"path,omitempty"`
		}{resolved.Reference, resolved.Digest, resolved.Path})

	default:
		return coreerrors.ConfigValidation("features info: mode must be one of tags, manifest, verbose")
	}
}
