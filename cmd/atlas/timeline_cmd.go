package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTimelineCommand() *cobra.Command {
	var (
		since string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "List chunks in chronological order since a given time",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "", "", "")
			if err != nil {
				return err
			}
			defer a.close()

			var sinceTime time.Time
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("invalid --since %q, want ISO-8601: %w", since, err)
				}
				sinceTime = t
			}

			results, err := a.search.Timeline(ctx, sinceTime, limit)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%s  [%s#%d]  %s\n", r.CreatedAt.Format(time.RFC3339), r.FilePath, r.ChunkIndex, truncateLine(r.Text, 160))
			}
			if len(results) == 0 {
				fmt.Println("no results")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "ISO-8601 timestamp to list chunks from (required)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum results to return")
	_ = cmd.MarkFlagRequired("since")

	return cmd
}
