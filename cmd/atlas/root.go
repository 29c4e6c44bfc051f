package main

import (
	"github.com/spf13/cobra"
)

// globalFlags holds the backend-override flags shared across
// subcommands that talk to the embedding/LLM/reranker registries.
type globalFlags struct {
	embedding string
	llm       string
	reranker  string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "atlas",
		Short:         "Persistent context engine: ingest, search, consolidate, and reclaim chunks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newIngestCommand(),
		newSearchCommand(),
		newTimelineCommand(),
		newConsolidateCommand(),
		newQdrantCommand(),
	)

	return root
}
