package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-metadata <target>",
		Short: "Generate preservation metadata for a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerateMetadata,
	}
}

func runGenerateMetadata(cmd *cobra.Command, args []string) error {
	client, err := newStorageClient()
	if err != nil {
		return err
	}

	project, err := projectName(client)
	if err != nil {
		return err
	}

	directory, err := generateDirectoryMetadata(cmd.Context(), client, project, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Generated metadata for directory: %s (identifier: %s)\n",
		args[0], directory.Identifier)

	return nil
}
