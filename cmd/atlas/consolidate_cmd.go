package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inherent-design/atlas-sub010/internal/consolidation"
)

func newConsolidateCommand() *cobra.Command {
	var (
		dryRun    bool
		threshold int
		limit     int
		flags     globalFlags
	)

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Merge near-duplicate chunk clusters into successor chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "", flags.llm, "")
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.consolidator.Run(ctx, consolidation.Options{
				DryRun:    dryRun,
				Threshold: threshold,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			fmt.Printf("candidate clusters found: %d\n", summary.CandidatesFound)
			if dryRun {
				for _, c := range summary.Candidates {
					fmt.Printf("  seed=%s members=%v\n", c.SeedID, c.MemberIDs)
				}
				return nil
			}
			fmt.Printf("clusters consolidated:    %d\n", summary.Consolidated)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report candidate clusters without merging")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "near-duplicate similarity threshold as a percentage 0..100 (default: engine default)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum seed chunks to scan (default: engine default)")
	cmd.Flags().StringVar(&flags.llm, "llm", "", "override the configured json-completion backend used to classify clusters (provider:model)")

	return cmd
}
