package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scormkit/scormkit/internal/config"
	"github.com/scormkit/scormkit/internal/engine"
	"github.com/scormkit/scormkit/internal/fetch"
	"github.com/scormkit/scormkit/internal/logging"
	"github.com/scormkit/scormkit/internal/scormerr"
	"github.com/scormkit/scormkit/internal/types"
)

var extractCmd = &cobra.Command{
	Use:     "extract <locator> <course-id>",
	Aliases: []string{"e"},
	Short:   "Process a package once and print a summary",
	Long: `Fetches the package at <locator> (an http(s) URL or a local file
path), extracts it into the workspace for <course-id>, resolves its
launchable items, and prints a human-readable summary.`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	info, err := processOnce(cmd.Context(), args[0], args[1])
	if err != nil {
		printExtractionError(err)
		return err
	}

	fmt.Printf("Title:          %s\n", info.Title)
	if info.Description != "" {
		fmt.Printf("Description:    %s\n", info.Description)
	}
	fmt.Printf("Schema version: %s\n", info.SchemaVersion)
	fmt.Printf("Launch file:    %s\n", info.LaunchFile)
	fmt.Printf("Launch URL:     %s\n", info.LaunchURL)
	if info.PackageRoot != "" {
		fmt.Printf("Package root:   %s\n", info.PackageRoot)
	}
	fmt.Printf("Organizations:  %d (default %s)\n", len(info.Organizations), info.DefaultOrganizationID)
	for _, org := range info.Organizations {
		fmt.Printf("  %s  %s\n", org.ID, org.Title)
		for _, item := range org.Items {
			status := item.LaunchPath
			if status == "" {
				status = "(unresolved)"
			}
			fmt.Printf("    %s  %s -> %s\n", item.ID, item.Title, status)
		}
	}
	for _, warning := range info.Diagnostics.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	for _, e := range info.Diagnostics.Errors {
		fmt.Printf("error: %s\n", e)
	}

	return nil
}

// processOnce builds a throwaway engine for one-shot CLI commands.
func processOnce(ctx context.Context, locator, courseID string) (*types.ExtractedPackageInfo, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	fetcher := fetch.NewArchiveFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
	eng := engine.New(cfg, fetcher, logger)
	defer eng.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	return eng.ProcessPackage(ctx, locator, courseID)
}

// printExtractionError renders the structured failure payload so a
// publisher can see what the engine actually tried.
func printExtractionError(err error) {
	var ee *scormerr.ExtractionError
	if !errors.As(err, &ee) {
		return
	}
	fmt.Fprintf(os.Stderr, "failed [%s]: %s\n", ee.Code, ee.Message)
	for key, value := range ee.Details {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
	}
	if ee.Diagnostics != nil {
		for _, warning := range ee.Diagnostics.Warnings {
			fmt.Fprintf(os.Stderr, "  warning: %s\n", warning)
		}
	}
}
