package handlers

import (
	"fmt"

	"interlink/internal/services"

	"github.com/spf13/cobra"
)

// NewRemoveCmd creates the remove command
func NewRemoveCmd() *cobra.Command {
	var linkID string

	cmd := &cobra.Command{
		Use:   "remove [post-id]",
		Short: "Remove internal links from an article",
		Long: `Unwrap internal links, keeping their anchor text in place.

With a post id every internal link in that article is removed. With --link
only the tracked link with that ledger id is removed.

Examples:
  interlink remove 6f1c2a9e-...
  interlink remove --link 0b7d3c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (linkID == "") {
				return fmt.Errorf("give either a post id or --link")
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if linkID != "" {
				fromContent, err := a.linking.RemoveLink(cmd.Context(), linkID)
				if err != nil {
					return err
				}
				if fromContent {
					fmt.Fprintln(out, "Link removed from content and ledger")
				} else {
					fmt.Fprintln(out, "Link was no longer in the content; ledger row removed")
				}
				return nil
			}

			removed, err := a.linking.RemoveInternalLinks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d internal links\n", removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&linkID, "link", "", "ledger id of a single link to remove")

	return cmd
}

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd() *cobra.Command {
	var (
		req        services.CleanupRequest
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove internal links from many articles",
		Long: `Remove every internal link from the given articles, or from all
published articles with --all.

Examples:
  interlink cleanup --slugs putting-drills,grip-basics
  interlink cleanup --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.linking.CleanupInternalLinks(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), results)
			}

			out := cmd.OutOrStdout()
			total := 0
			for _, r := range results {
				if r.Error != "" {
					fmt.Fprintf(out, "%-40s %s\n", r.Slug, r.Error)
					continue
				}
				fmt.Fprintf(out, "%-40s %d removed\n", r.Slug, r.Removed)
				total += r.Removed
			}
			fmt.Fprintf(out, "\nTotal: %d links removed from %d articles\n", total, len(results))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&req.Slugs, "slugs", nil, "comma separated article slugs")
	cmd.Flags().BoolVar(&req.All, "all", false, "clean every published article")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw results as JSON")
	cmd.MarkFlagsMutuallyExclusive("slugs", "all")
	cmd.MarkFlagsOneRequired("slugs", "all")

	return cmd
}
