package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpres/preingest-go/internal/storage"
)

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse <path>",
		Short: "Show a file or directory in the pre-ingest file storage",
		Args:  cobra.ExactArgs(1),
		RunE:  runBrowse,
	}
}

func runBrowse(cmd *cobra.Command, args []string) error {
	client, err := newStorageClient()
	if err != nil {
		return err
	}

	project, err := projectName(client)
	if err != nil {
		return err
	}

	res, err := client.Browse(cmd.Context(), project, args[0])
	if err != nil {
		// A missing path is an expected condition, not a failure.
		var notFound *storage.NotFoundError
		if errors.As(err, &notFound) {
			fmt.Println(notFound.Message)

			return nil
		}

		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if res.Kind == storage.KindFile {
			return enc.Encode(res.File)
		}

		return enc.Encode(res.Directory)
	}

	printResource(os.Stdout, res)

	return nil
}
