// Package cli implements the deacon command-line interface: up, down,
// build, exec, read-configuration, features, outdated, and doctor.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/output"
	"github.com/deacon-dev/deacon/internal/version"
)

// Global flags shared by every subcommand.
var (
	workspacePath  string
	configPath     string
	overridePath   string
	secretsFiles   []string
	runtimeName    string
	logFormat      string
	logLevel       string
	jsonOutput     bool
	noColor        bool
	quiet          bool
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "deacon",
	Short: "Devcontainer orchestrator",
	Long: `deacon parses, merges, and runs devcontainer.json environments with
full support for docker compose and Features.

It drives the Docker Engine API and the docker compose CLI directly and
tracks container state with labels, so start/stop/exec stay offline-safe.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format := output.FormatText
		if jsonOutput || logFormat == "json" {
			format = output.FormatJSON
		}

		verbosity := output.VerbosityNormal
		if quiet {
			verbosity = output.VerbosityQuiet
		} else if verbose {
			verbosity = output.VerbosityVerbose
		}

		output.Configure(output.Config{
			Format:    format,
			Verbosity: verbosity,
			NoColor:   noColor,
			Writer:    os.Stdout,
			ErrWriter: os.Stderr,
		})

		configureLogger(logFormat, logLevel)

		if workspacePath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("determine current directory: %w", err)
			}
			workspacePath = wd
		}
		return nil
	},
}

// configureLogger installs the process-wide structured logger per
// --log-format/--log-level, matching devcontainer.json's own text/json
// split for command output.
func configureLogger(format, level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = devslog.NewHandler(os.Stderr, &devslog.Options{
			HandlerOptions:  opts,
			NewLineAfterLog: true,
			SortKeys:        true,
		})
	}
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command. Called once from cmd/deacon/main.go.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspacePath, "workspace-folder", "w", "", "workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to devcontainer.json (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&overridePath, "override-config", "", "path to an override devcontainer.json merged on top of the primary config")
	rootCmd.PersistentFlags().StringArrayVar(&secretsFiles, "secrets-file", nil, "path to a secrets file (name=value per line); may be repeated")
	rootCmd.PersistentFlags().StringVar(&runtimeName, "runtime", "docker", "container runtime to drive (docker)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text|json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON (implied by --log-format=json for command results)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(readConfigurationCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(outdatedCmd)
	rootCmd.AddCommand(doctorCmd)
}
