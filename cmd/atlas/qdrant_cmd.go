package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inherent-design/atlas-sub010/internal/vacuum"
)

func newQdrantCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qdrant",
		Short: "Collection maintenance: drop, vacuum, and HNSW toggling",
	}
	cmd.AddCommand(newQdrantDropCommand(), newQdrantVacuumCommand(), newQdrantHNSWCommand())
	return cmd
}

func newQdrantDropCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the configured collection and all its chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "", "", "")
			if err != nil {
				return err
			}
			defer a.close()

			if !yes && !confirm(fmt.Sprintf("drop collection %q? [y/N] ", a.cfg.Store.Collection)) {
				fmt.Println("aborted")
				return nil
			}
			if err := a.store.DeleteCollection(ctx, a.cfg.Store.Collection); err != nil {
				return err
			}
			fmt.Printf("collection %q dropped\n", a.cfg.Store.Collection)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func newQdrantVacuumCommand() *cobra.Command {
	var (
		force  bool
		dryRun bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Hard-delete soft-deleted chunks past their grace period",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "", "", "")
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.vacuum.Run(ctx, vacuum.Options{
				Force:       force,
				DryRun:      dryRun,
				Limit:       limit,
				GracePeriod: a.cfg.Vacuum.GracePeriod,
			})
			if err != nil {
				return err
			}

			fmt.Printf("scanned:      %d\n", stats.Scanned)
			fmt.Printf("within grace: %d\n", stats.WithinGrace)
			if dryRun {
				fmt.Printf("would delete: %d\n", stats.Deleted)
				for _, s := range stats.Samples {
					fmt.Printf("  %s\n", s.ID)
				}
				return nil
			}
			fmt.Printf("deleted:      %d\n", stats.Deleted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete regardless of grace period")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted without deleting")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum chunks to scan (default: engine default)")
	return cmd
}

func newQdrantHNSWCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "hnsw on|off",
		Short:     "Toggle HNSW indexing on the configured collection",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, "", "", "")
			if err != nil {
				return err
			}
			defer a.close()

			enabled := args[0] == "on"
			if err := a.store.SetHNSW(ctx, a.cfg.Store.Collection, enabled); err != nil {
				return err
			}
			fmt.Printf("hnsw %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
