package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inherent-design/atlas-sub010/internal/ingest"
)

func newIngestCommand() *cobra.Command {
	var (
		recursive bool
		quiet     bool
		flags     globalFlags
	)

	cmd := &cobra.Command{
		Use:   "ingest <paths...>",
		Short: "Split, embed, tag, and store the given files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags.embedding, flags.llm, "")
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.ingest.Run(ctx, ingest.Options{Paths: args, Recursive: recursive})
			if err != nil {
				return err
			}

			if !quiet {
				fmt.Printf("files processed: %d\n", result.FilesProcessed)
				fmt.Printf("chunks stored:   %d\n", result.ChunksStored)
				for _, e := range result.Errors {
					fmt.Printf("  warning: %v\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&recursive, "recursive", false, "recurse into subdirectories")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress progress and summary output")
	cmd.Flags().StringVar(&flags.embedding, "embedding", "", "override the configured text-embedding backend (provider:model)")
	cmd.Flags().StringVar(&flags.llm, "llm", "", "override the configured json-completion backend (provider:model)")

	return cmd
}
