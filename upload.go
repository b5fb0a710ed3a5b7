package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpres/preingest-go/internal/storage"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <source>",
		Short: "Upload a tar or zip archive for extraction into the storage",
		Long: `Upload a local tar or zip archive to the pre-ingest file storage. The
server extracts the archive into the target directory and generates
preservation metadata for it; both steps run as server-side tasks that are
polled to completion before the command returns.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().String("target", "/", "directory where the uploaded archive is extracted")
	cmd.Flags().StringP("output", "o", "", "file where the created identifiers are written")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := newStorageClient()
	if err != nil {
		return err
	}

	project, err := projectName(client)
	if err != nil {
		return err
	}

	targetFlag, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	// Target directory paths always start with a slash; root stays "/".
	target := "/" + strings.Trim(targetFlag, "/")
	source := args[0]
	ctx := cmd.Context()

	task, err := client.UploadArchive(ctx, project, source, target)
	if err != nil {
		return err
	}

	statusf("Uploaded '%s'\n", source)

	if _, err := client.WaitTask(ctx, task); err != nil {
		progress.finish()

		return err
	}
	progress.finish()

	directory, err := generateDirectoryMetadata(ctx, client, project, target)
	if err != nil {
		return err
	}

	if output != "" {
		if err := writeIdentifiers(ctx, client, project, target, output); err != nil {
			return err
		}
	}

	// The root directory identifier is never printed, so it cannot be
	// copied into a dataset by accident.
	message := fmt.Sprintf("Generated metadata for directory: %s", target)
	if target != "/" {
		message += fmt.Sprintf(" (identifier: %s)", directory.Identifier)
	}

	fmt.Println(message)

	if len(directory.Directories) > 0 {
		fmt.Println("\nThe directory contains subdirectories:")

		for _, sub := range directory.Directories {
			res, err := client.Browse(ctx, project, target+"/"+sub)
			if err != nil {
				return err
			}

			identifier := ""
			if res.Kind == storage.KindDirectory {
				identifier = res.Directory.Identifier
			}

			fmt.Printf("%s (identifier: %s)\n", sub, identifier)
		}
	}

	return nil
}

// generateDirectoryMetadata runs server-side metadata generation for target
// and returns the resulting directory descriptor.
func generateDirectoryMetadata(ctx context.Context, client *storage.Client, project, target string) (*storage.Directory, error) {
	res, err := client.GenerateMetadata(ctx, project, target)
	progress.finish()

	if err != nil {
		return nil, err
	}

	if res.Kind != storage.KindDirectory {
		return nil, fmt.Errorf("metadata target %q is not a directory", target)
	}

	return res.Directory, nil
}

// writeIdentifiers writes a TSV of the file records under target: parent
// directory identifier, file identifier, checksum, and path per line.
func writeIdentifiers(ctx context.Context, client *storage.Client, project, target, output string) error {
	records, err := client.DirectoryFiles(ctx, project, target)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	for _, record := range records {
		if _, err := fmt.Fprintf(f, "%s\t%s\t%s\t%s\n",
			record.ParentDirectoryIdentifier, record.Identifier,
			record.Checksum, record.Path); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
	}

	return f.Sync()
}
