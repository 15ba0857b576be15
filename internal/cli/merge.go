package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhalm/logos/merge"
)

func (a *app) newMergeCmd() *cobra.Command {
	var write, sorted bool

	cmd := &cobra.Command{
		Use:   "merge FILE...",
		Short: "Merge quote files into the dataset, removing duplicates",
		Long: `Merge reads the dataset and each FILE, a JSON array of
{"text": ..., "author": ...} objects, and removes duplicate quotes. Records
already in the dataset win. Nothing is written without --write.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := merge.Run(merge.Options{
				Dataset: a.cfg.Dataset,
				Inputs:  args,
				Sort:    sorted,
				Write:   write,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Existing: %d\n", report.Existing)
			fmt.Fprintf(out, "Incoming: %d\n", report.Incoming)
			fmt.Fprintf(out, "Duplicates removed: %d\n", report.Duplicates)
			fmt.Fprintf(out, "Final: %d\n", report.Final)
			if report.Written {
				fmt.Fprintf(out, "Wrote %d quotes to %s\n", report.Final, a.cfg.Dataset)
			} else {
				fmt.Fprintln(out, "Dry run (no files written). Use --write to persist.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "write the merged dataset (otherwise dry run)")
	cmd.Flags().BoolVar(&sorted, "sort", false, "sort by author, then text")

	return cmd
}
