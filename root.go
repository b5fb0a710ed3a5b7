package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpres/preingest-go/internal/config"
	"github.com/dpres/preingest-go/internal/storage"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagProject    string
	flagInsecure   bool
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the configuration loaded by PersistentPreRunE.
// Available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// progress collects the task-polling dots printed while a command waits
// out a server-side task.
var progress pollProgress

// newRootCmd builds the fully-assembled root command with all subcommands
// registered. Called once from main().
func newRootCmd() *cobra.Command {
	storage.Version = version

	cmd := &cobra.Command{
		Use:   "preingest",
		Short: "Pre-ingest file storage client",
		Long: `Client for the digital preservation pre-ingest file storage. Uploads tar
and zip archives for server-side extraction, generates preservation
metadata, browses stored files, and deletes them with their metadata.`,
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", config.DefaultPath,
		"path to the configuration file")
	cmd.PersistentFlags().StringVar(&flagProject, "project", "", "project to operate on")
	cmd.PersistentFlags().BoolVarP(&flagInsecure, "insecure", "k", false,
		"skip TLS certificate verification")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newListProjectsCmd())
	cmd.AddCommand(newBrowseCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newGenerateMetadataCmd())

	return cmd
}

// loadConfig reads the configuration file and environment overrides into
// resolvedCfg for use by subcommands.
func loadConfig() error {
	cfg, err := config.Load(flagConfigPath, config.ReadEnvOverrides())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger from the config-file log level with
// CLI flag overrides. --verbose and --quiet win because CLI flags always
// take precedence over configuration.
func buildLogger() *slog.Logger {
	level := slog.LevelWarn

	if resolvedCfg != nil {
		switch resolvedCfg.Upload.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newStorageClient constructs the storage client from the resolved
// configuration and persistent flags.
func newStorageClient() (*storage.Client, error) {
	return storage.NewClient(storage.Options{
		Host: resolvedCfg.Upload.Host,
		Credentials: storage.Credentials{
			Token:    resolvedCfg.Upload.Token,
			User:     resolvedCfg.Upload.User,
			Password: resolvedCfg.Upload.Password,
		},
		VerifyTLS:      !flagInsecure,
		DefaultProject: resolvedCfg.Upload.DefaultProject,
		OnPoll:         progress.tick,
		Logger:         buildLogger(),
	})
}

// projectName resolves the project to operate on: the --project flag wins,
// then the configuration file's default_project.
func projectName(client *storage.Client) (string, error) {
	if flagProject != "" {
		return flagProject, nil
	}

	if p := client.DefaultProject(); p != "" {
		return p, nil
	}

	return "", errors.New("project name was not provided: " +
		"use the --project option or the upload.default_project configuration field")
}

// exitOnError prints a user-facing error message to stderr and exits.
// Task failures and structured HTTP failures include the server payload.
func exitOnError(err error) {
	var taskErr *storage.TaskError
	if errors.As(err, &taskErr) {
		fmt.Fprintf(os.Stderr, "Error when polling task %s:\n", taskErr.Task.Identifier)
		fmt.Fprintln(os.Stderr, indentJSON(taskErr.Task.Payload))
		os.Exit(1)
	}

	var apiErr *storage.APIError
	if errors.As(err, &apiErr) && apiErr.IsJSON() {
		var payload map[string]any
		if jsonErr := json.Unmarshal(apiErr.Body, &payload); jsonErr == nil {
			fmt.Fprintf(os.Stderr, "Error when performing request (HTTP %d):\n", apiErr.StatusCode)
			fmt.Fprintln(os.Stderr, indentJSON(payload))
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// indentJSON renders v as indented JSON for error display.
func indentJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(out)
}
