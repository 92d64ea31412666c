package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBackfillCmd creates the backfill command
func NewBackfillCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "List published articles with too few internal links",
		Long: `List published articles whose internal link count is below the
recommendation for their reading time, capped by catalog size. The largest
deficits come first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.linking.PostsNeedingLinks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalog: %d published\n", result.CatalogSize)
			if result.Note != "" {
				fmt.Fprintln(out, result.Note)
			}
			if result.Message != "" {
				fmt.Fprintln(out, result.Message)
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%-8s %-8s %-8s %s\n", "Links", "Target", "Deficit", "Article")
			for _, p := range result.Posts {
				fmt.Fprintf(out, "%-8d %-8d %-8d %s (%s)\n", p.CurrentLinks, p.Recommended, p.Deficit, p.Title, p.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "maximum number of articles to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw result as JSON")
	return cmd
}
