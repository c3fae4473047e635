package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vidgen-gateway/poller"
)

func newExploreCommand() *cobra.Command {
	var server string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "List completed videos from the public gallery",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := poller.NewClient(server, 30*time.Second)
			res, err := client.Explore(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Videos) == 0 {
				fmt.Fprintln(out, "No videos yet.")
				return nil
			}
			fmt.Fprintln(out, renderExplore(client, res))
			p := res.Pagination
			fmt.Fprintf(out, "Page %d of %d (%d videos)\n", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}
	serverFlag(cmd, &server)
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Videos per page (max 100)")
	return cmd
}

func renderExplore(client *poller.Client, res *poller.ExplorePage) string {
	headers := []string{"Video", "Prompt", "Duration", "Owner", "Created", "URL"}
	rows := make([][]string, 0, len(res.Videos))
	for _, v := range res.Videos {
		duration := "-"
		if v.Duration != nil {
			duration = formatDuration(*v.Duration)
		}
		owner := "anonymous"
		if v.User != nil && v.User.Email != "" {
			owner = v.User.Email
		}
		url := ""
		if v.VideoURL != nil {
			url = client.MediaURL(*v.VideoURL)
		}
		rows = append(rows, []string{
			v.VideoID,
			truncate(v.Prompt, 48),
			duration,
			owner,
			v.CreatedAt.Local().Format("2006-01-02 15:04"),
			url,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
