package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newListProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-projects",
		Short: "List accessible projects and their quotas",
		Args:  cobra.NoArgs,
		RunE:  runListProjects,
	}
}

func runListProjects(cmd *cobra.Command, _ []string) error {
	client, err := newStorageClient()
	if err != nil {
		return err
	}

	projects, err := client.Projects(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(projects)
	}

	if len(projects) == 0 {
		fmt.Println("No projects available")

		return nil
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			p.Identifier,
			strconv.FormatInt(p.UsedQuota, 10),
			strconv.FormatInt(p.Quota, 10),
		})
	}

	printTable(os.Stdout, []string{"Project", "Used quota", "Quota"}, rows)

	return nil
}
