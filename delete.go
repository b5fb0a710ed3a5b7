package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a file or directory and its metadata",
		Long: `Delete a file or directory from the pre-ingest file storage. Metadata of
the deleted files is cleaned up in a server-side task that is polled to
completion before the command returns.`,
		Args: cobra.ExactArgs(1),
		RunE: runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := newStorageClient()
	if err != nil {
		return err
	}

	project, err := projectName(client)
	if err != nil {
		return err
	}

	task, err := client.Delete(cmd.Context(), project, args[0])
	if err != nil {
		return err
	}

	_, err = client.WaitTask(cmd.Context(), task)
	progress.finish()

	if err != nil {
		return err
	}

	fmt.Printf("Deleted '%s' and all associated metadata.\n", args[0])

	return nil
}
