package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/inherent-design/atlas-sub010/internal/search"
)

func newSearchCommand() *cobra.Command {
	var (
		limit    int
		since    string
		qntmKey  string
		rerank   bool
		expand   bool
		flags    globalFlags
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored chunks (hybrid dense+lexical unless --rerank or --expand is set)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags.embedding, "", flags.reranker)
			if err != nil {
				return err
			}
			defer a.close()

			params := search.Params{
				Query:       strings.Join(args, " "),
				Limit:       limit,
				QNTMKey:     qntmKey,
				Rerank:      rerank,
				ExpandQuery: expand,
				Hybrid:      !rerank && !expand,
			}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("invalid --since %q, want ISO-8601: %w", since, err)
				}
				params.Since = &t
			}

			results, err := a.search.Search(ctx, params)
			if err != nil {
				return err
			}

			for i, r := range results {
				fmt.Printf("%d. [%s#%d] score=%.4f\n", i+1, r.FilePath, r.ChunkIndex, r.Score)
				fmt.Printf("   %s\n", truncateLine(r.Text, 200))
			}
			if len(results) == 0 {
				fmt.Println("no results")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results to return")
	cmd.Flags().StringVar(&since, "since", "", "only return chunks created at or after this ISO-8601 timestamp")
	cmd.Flags().StringVar(&qntmKey, "qntm", "", "restrict results to chunks tagged with this QNTM key")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "rerank the dense candidate set with the configured reranker (dense-only, no hybrid fusion)")
	cmd.Flags().BoolVar(&expand, "expand", false, "expand the query with QNTM keys before searching (dense-only, no hybrid fusion)")
	cmd.Flags().StringVar(&flags.embedding, "embedding", "", "override the configured text-embedding backend (provider:model)")
	cmd.Flags().StringVar(&flags.reranker, "reranker", "", "override the configured text-reranking specifier; any non-empty value enables the LLM reranker over the json-completion backend (provider:model is not parsed)")

	return cmd
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
